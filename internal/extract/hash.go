package extract

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"sort"

	"golang.org/x/image/draw"
)

// hashSide is the DCT input size for the perceptual hash; the hash itself
// keeps the top-left 8x8 low-frequency block, giving 64 bits.
const hashSide = 32

// Hash is a 64-bit perceptual fingerprint of a frame.
type Hash uint64

// String renders the hash as a 16-digit hex string.
func (h Hash) String() string {
	return fmt.Sprintf("%016x", uint64(h))
}

// Distance is the Hamming distance to another hash: the number of differing
// bits, 0 for identical fingerprints.
func (h Hash) Distance(other Hash) int {
	xor := uint64(h ^ other)
	d := 0
	for xor != 0 {
		d++
		xor &= xor - 1
	}
	return d
}

// HashImage computes the perceptual hash of a decoded frame.
//
// The frame is shrunk to 32x32 grayscale, transformed with a 2-D DCT, and
// the 64 lowest-frequency coefficients (DC excluded) are thresholded
// against their median. Visually similar frames land within a small
// Hamming distance of each other even across compression artifacts.
func HashImage(img image.Image) Hash {
	gray := shrinkGray(img, hashSide, hashSide)
	dct := dct2d(gray)

	coeffs := make([]float64, 0, 64)
	for u := 0; u < 8; u++ {
		for v := 0; v < 8; v++ {
			if u == 0 && v == 0 {
				continue
			}
			coeffs = append(coeffs, dct[u][v])
		}
	}
	coeffs = append(coeffs, dct[8][0])

	median := medianOf(coeffs)

	var h Hash
	for i, c := range coeffs {
		if c > median {
			h |= 1 << (63 - i)
		}
	}
	return h
}

// HashFrame decodes an encoded frame and computes its perceptual hash.
func HashFrame(data []byte) (Hash, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return 0, fmt.Errorf("failed to decode frame: %w", err)
	}
	return HashImage(img), nil
}

// shrinkGray scales the image down and converts it to a luma grid.
func shrinkGray(img image.Image, width, height int) [][]float64 {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)

	gray := make([][]float64, width)
	for x := 0; x < width; x++ {
		gray[x] = make([]float64, height)
		for y := 0; y < height; y++ {
			r, g, b, _ := dst.At(x, y).RGBA()
			// ITU-R BT.601 luma
			gray[x][y] = 0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(b>>8)
		}
	}
	return gray
}

// dct2d computes the 2-D DCT-II of a square grayscale grid.
func dct2d(gray [][]float64) [][]float64 {
	size := len(gray)

	cosTable := make([][]float64, size)
	for i := range cosTable {
		cosTable[i] = make([]float64, size)
		for j := 0; j < size; j++ {
			cosTable[i][j] = math.Cos(math.Pi * float64(i) * (2*float64(j) + 1) / (2 * float64(size)))
		}
	}

	dct := make([][]float64, size)
	for u := range dct {
		dct[u] = make([]float64, size)
		for v := 0; v < size; v++ {
			var sum float64
			for x := 0; x < size; x++ {
				for y := 0; y < size; y++ {
					sum += gray[x][y] * cosTable[u][x] * cosTable[v][y]
				}
			}
			dct[u][v] = sum
		}
	}
	return dct
}

func medianOf(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 0 {
		return (sorted[n/2-1] + sorted[n/2]) / 2
	}
	return sorted[n/2]
}
