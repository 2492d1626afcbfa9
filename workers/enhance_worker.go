package workers

import (
	"fmt"
	"log"
	"sync"

	"github.com/openphotolab/enhancebackend/config"
	"github.com/openphotolab/enhancebackend/enhance"
	"github.com/openphotolab/enhancebackend/media"
	"github.com/openphotolab/enhancebackend/repository"
)

// EnhanceJob carries one queued enhancement. Data holds the raw image bytes;
// for batch jobs sourced from disk it may be nil, in which case Path is read
// by the worker.
type EnhanceJob struct {
	RecordID   uint
	SourceName string
	Path       string
	Data       []byte
}

// EnhanceProcessor owns the enhancement worker pool. Each worker instantiates
// its own cascade detector and pipeline; the detector holds native resources
// and is not safe to share.
type EnhanceProcessor struct {
	JobQueue chan EnhanceJob
	Config   config.Config
	Store    media.Store
	Repo     *repository.EnhancementRepository
	Wg       sync.WaitGroup
	StopChan chan struct{}
	Pending  map[uint]bool
	Mutex    sync.Mutex
}

func NewEnhanceProcessor(cfg config.Config, store media.Store, repo *repository.EnhancementRepository, queueSize, numWorkers int) *EnhanceProcessor {
	if numWorkers <= 0 {
		numWorkers = 1
	}
	if queueSize <= 0 {
		queueSize = 100
	}
	proc := &EnhanceProcessor{
		JobQueue: make(chan EnhanceJob, queueSize),
		Config:   cfg,
		Store:    store,
		Repo:     repo,
		StopChan: make(chan struct{}),
		Pending:  make(map[uint]bool),
	}
	proc.Wg.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		go proc.worker(i, cfg)
	}
	log.Printf("Started %d enhancement worker(s) with queue size %d", numWorkers, queueSize)
	return proc
}

// worker loads its detector, builds a pipeline, and processes jobs from the queue
func (ep *EnhanceProcessor) worker(id int, cfg config.Config) {
	defer ep.Wg.Done()

	log.Printf("Worker %d: Loading cascade face detector...", id)
	detector := enhance.NewCascadeDetector(cfg.FaceCascadePath)
	defer func() {
		detector.Close()
		log.Printf("Worker %d: Cascade detector closed", id)
	}()
	if !detector.Enabled {
		log.Printf("Worker %d: Cascade detector failed to load or is disabled", id)
	}

	pipeline := enhance.NewPipeline(enhance.DefaultTunables(), cfg.Style, detector)
	processor := media.NewProcessor(ep.Store, pipeline, cfg.JpegQuality)

	log.Printf("Enhancement worker %d started", id)
	for {
		select {
		case job, ok := <-ep.JobQueue:
			if !ok {
				log.Printf("Enhancement worker %d stopping: Job queue closed", id)
				return
			}

			log.Printf("Worker %d: Received job #%d for: %s", id, job.RecordID, job.SourceName)

			if err := ep.Repo.MarkProcessing(job.RecordID); err != nil {
				log.Printf("Worker %d: ERROR marking job #%d processing: %v. Skipping job.", id, job.RecordID, err)
				ep.clearPending(job.RecordID)
				continue
			}

			ep.processJob(id, job, processor)
			ep.clearPending(job.RecordID)

		case <-ep.StopChan:
			log.Printf("Enhancement worker %d stopping: Stop signal received", id)
			return
		}
	}
}

// processJob runs one enhancement and records the result
func (ep *EnhanceProcessor) processJob(id int, job EnhanceJob, processor *media.Processor) {
	var processed *media.ProcessedImage
	var taskErr error

	if len(job.Data) > 0 {
		processed, taskErr = processor.EnhanceBytes(job.Data, job.SourceName)
	} else if job.Path != "" {
		processed, taskErr = processor.EnhanceFile(job.Path)
	} else {
		taskErr = fmt.Errorf("job #%d has neither data nor a path", job.RecordID)
	}

	if taskErr != nil {
		log.Printf("Worker %d: ERROR enhancing %s: %v", id, job.SourceName, taskErr)
	} else {
		log.Printf("Worker %d: Enhanced %s -> %s", id, job.SourceName, processed.OutputPath)
	}

	if dbErr := ep.Repo.Finish(job.RecordID, processed, taskErr); dbErr != nil {
		log.Printf("Worker %d: ERROR updating DB result for job #%d: %v", id, job.RecordID, dbErr)
	}
}

func (ep *EnhanceProcessor) clearPending(recordID uint) {
	ep.Mutex.Lock()
	delete(ep.Pending, recordID)
	ep.Mutex.Unlock()
}

// QueueJob queues an enhancement if its record is not already pending
func (ep *EnhanceProcessor) QueueJob(job EnhanceJob) bool {
	ep.Mutex.Lock()
	if ep.Pending[job.RecordID] {
		ep.Mutex.Unlock()
		return false
	}

	ep.Pending[job.RecordID] = true
	ep.Mutex.Unlock()

	select {
	case ep.JobQueue <- job:
		log.Printf("Queued enhancement #%d for: %s", job.RecordID, job.SourceName)
		return true
	default:
		log.Printf("WARNING: Enhancement job queue full. Failed to queue #%d for: %s", job.RecordID, job.SourceName)
		ep.clearPending(job.RecordID)
		return false
	}
}

// QueueJobBlocking queues an enhancement, waiting for queue space instead of
// dropping the job when the queue is full. Duplicate pending records are
// still rejected.
func (ep *EnhanceProcessor) QueueJobBlocking(job EnhanceJob) bool {
	ep.Mutex.Lock()
	if ep.Pending[job.RecordID] {
		ep.Mutex.Unlock()
		return false
	}

	ep.Pending[job.RecordID] = true
	ep.Mutex.Unlock()

	ep.JobQueue <- job
	log.Printf("Queued enhancement #%d for: %s", job.RecordID, job.SourceName)
	return true
}

func (ep *EnhanceProcessor) Stop() {
	log.Println("Stopping enhancement workers...")
	close(ep.StopChan)
	ep.Wg.Wait()
	log.Println("All enhancement workers stopped")
}
