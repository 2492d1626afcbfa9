package enhance

import (
	"image"

	"gocv.io/x/gocv"
)

// Low-level vision primitives backed by OpenCV. These are the only places
// the core touches gocv; every wrapper copies its input into a Mat and copies
// the result back out, so callers keep plain slices and full ownership.

func matFromRGB(pix []uint8, width, height int) (gocv.Mat, bool) {
	mat, err := gocv.NewMatFromBytes(height, width, gocv.MatTypeCV8UC3, pix)
	if err != nil || mat.Empty() {
		return gocv.Mat{}, false
	}
	return mat, true
}

func matFromGray(gray []uint8, width, height int) (gocv.Mat, bool) {
	mat, err := gocv.NewMatFromBytes(height, width, gocv.MatTypeCV8U, gray)
	if err != nil || mat.Empty() {
		return gocv.Mat{}, false
	}
	return mat, true
}

// rgbToHSV converts interleaved RGB bytes to interleaved HSV bytes on the
// OpenCV scale (hue 0–179). Returns nil when conversion is unavailable.
func rgbToHSV(pix []uint8, width, height int) []uint8 {
	src, ok := matFromRGB(pix, width, height)
	if !ok {
		return nil
	}
	defer src.Close()

	dst := gocv.NewMat()
	defer dst.Close()
	gocv.CvtColor(src, &dst, gocv.ColorRGBToHSV)

	out, err := dst.ToBytes()
	if err != nil {
		return nil
	}
	return out
}

// hsvToRGB is the inverse of rgbToHSV. Returns nil on failure.
func hsvToRGB(hsv []uint8, width, height int) []uint8 {
	src, ok := matFromRGB(hsv, width, height) // same 8UC3 layout
	if !ok {
		return nil
	}
	defer src.Close()

	dst := gocv.NewMat()
	defer dst.Close()
	gocv.CvtColor(src, &dst, gocv.ColorHSVToRGB)

	out, err := dst.ToBytes()
	if err != nil {
		return nil
	}
	return out
}

// gaussianBlurF32 blurs a single float32 plane with a ksize×ksize Gaussian
// kernel (sigma derived from kernel size, as OpenCV does with sigma 0).
// Returns the input unchanged when the primitive is unavailable.
func gaussianBlurF32(plane []float32, width, height, ksize int) []float32 {
	src := gocv.NewMatWithSize(height, width, gocv.MatTypeCV32F)
	defer src.Close()
	data, err := src.DataPtrFloat32()
	if err != nil {
		return plane
	}
	copy(data, plane)

	dst := gocv.NewMat()
	defer dst.Close()
	gocv.GaussianBlur(src, &dst, image.Pt(ksize, ksize), 0, 0, gocv.BorderDefault)

	blurred, err := dst.DataPtrFloat32()
	if err != nil {
		return plane
	}
	out := make([]float32, len(plane))
	copy(out, blurred)
	return out
}

// laplacianVariance computes the variance of a discrete Laplacian of the
// given grayscale plane. Returns 0 when the primitive is unavailable.
func laplacianVariance(gray []uint8, width, height int) float64 {
	src, ok := matFromGray(gray, width, height)
	if !ok {
		return 0
	}
	defer src.Close()

	dst := gocv.NewMat()
	defer dst.Close()
	gocv.Laplacian(src, &dst, gocv.MatTypeCV64F, 1, 1, 0, gocv.BorderDefault)

	vals, err := dst.DataPtrFloat64()
	if err != nil || len(vals) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	mean := sum / float64(len(vals))
	var variance float64
	for _, v := range vals {
		d := v - mean
		variance += d * d
	}
	return variance / float64(len(vals))
}

// bilateralRGB applies edge-preserving bilateral smoothing. Returns the input
// unchanged when the primitive is unavailable.
func bilateralRGB(pix []uint8, width, height, diameter int, sigmaColor, sigmaSpace float64) []uint8 {
	src, ok := matFromRGB(pix, width, height)
	if !ok {
		return pix
	}
	defer src.Close()

	dst := gocv.NewMat()
	defer dst.Close()
	gocv.BilateralFilter(src, &dst, diameter, sigmaColor, sigmaSpace)

	out, err := dst.ToBytes()
	if err != nil || len(out) != len(pix) {
		return pix
	}
	return out
}

// unsharpRGB sharpens with an unsharp mask: original×(1+amount) − blurred×amount,
// using a fixed 5×5 Gaussian. Returns the input unchanged on failure.
func unsharpRGB(pix []uint8, width, height int, amount float64) []uint8 {
	src, ok := matFromRGB(pix, width, height)
	if !ok {
		return pix
	}
	defer src.Close()

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(src, &blurred, image.Pt(5, 5), 0, 0, gocv.BorderDefault)

	dst := gocv.NewMat()
	defer dst.Close()
	gocv.AddWeighted(src, 1.0+amount, blurred, -amount, 0, &dst)

	out, err := dst.ToBytes()
	if err != nil || len(out) != len(pix) {
		return pix
	}
	return out
}

// resizeGray downscales a grayscale plane with area interpolation.
func resizeGray(gray []uint8, width, height, newWidth, newHeight int) []uint8 {
	src, ok := matFromGray(gray, width, height)
	if !ok {
		return nil
	}
	defer src.Close()

	dst := gocv.NewMat()
	defer dst.Close()
	gocv.Resize(src, &dst, image.Pt(newWidth, newHeight), 0, 0, gocv.InterpolationArea)

	out, err := dst.ToBytes()
	if err != nil {
		return nil
	}
	return out
}
