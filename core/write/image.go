package write

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"image/color"

	// Decoders for every raster format a watermark may use
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/benedoc-inc/pdfwm/core/parse"
)

// ImageInfo contains information about an embedded image
type ImageInfo struct {
	ObjectNum  int        // Object number of the image XObject
	Width      int        // Image width in pixels
	Height     int        // Image height in pixels
	ColorSpace parse.Name // PDF color space, e.g. DeviceRGB
	HasMask    bool       // an SMask carries the alpha channel
}

// AddJPEGImage embeds JPEG data directly without re-encoding (DCTDecode)
func (w *PDFWriter) AddJPEGImage(jpegData []byte) (*ImageInfo, error) {
	width, height, colorSpace, err := parseJPEGHeader(jpegData)
	if err != nil {
		return nil, fmt.Errorf("invalid JPEG: %v", err)
	}

	dict := parse.Dict{
		"Type":             parse.Name("XObject"),
		"Subtype":          parse.Name("Image"),
		"Width":            parse.Integer(width),
		"Height":           parse.Integer(height),
		"ColorSpace":       colorSpace,
		"BitsPerComponent": parse.Integer(8),
		"Filter":           parse.Name("DCTDecode"),
	}
	objNum := w.AddStreamObject(dict, jpegData, false)

	return &ImageInfo{
		ObjectNum:  objNum,
		Width:      width,
		Height:     height,
		ColorSpace: colorSpace,
	}, nil
}

// AddImage embeds an encoded image. JPEG is passed through; every other
// format is converted to 8-bit RGB or gray samples compressed with
// FlateDecode, with an SMask when the image is not opaque.
func (w *PDFWriter) AddImage(imgData []byte) (*ImageInfo, error) {
	img, format, err := image.Decode(bytes.NewReader(imgData))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %v", err)
	}
	if format == "jpeg" {
		return w.AddJPEGImage(imgData)
	}
	return w.AddDecodedImage(img), nil
}

// AddDecodedImage embeds an already decoded image
func (w *PDFWriter) AddDecodedImage(img image.Image) *ImageInfo {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	var rawData []byte
	var colorSpace parse.Name

	switch img.ColorModel() {
	case color.GrayModel, color.Gray16Model:
		colorSpace = "DeviceGray"
		rawData = make([]byte, width*height)
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				gray := color.GrayModel.Convert(img.At(x+bounds.Min.X, y+bounds.Min.Y)).(color.Gray)
				rawData[y*width+x] = gray.Y
			}
		}
	default:
		colorSpace = "DeviceRGB"
		rawData = make([]byte, width*height*3)
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				// Use non-premultiplied samples; the SMask applies alpha
				c := color.NRGBAModel.Convert(img.At(x+bounds.Min.X, y+bounds.Min.Y)).(color.NRGBA)
				idx := (y*width + x) * 3
				rawData[idx] = c.R
				rawData[idx+1] = c.G
				rawData[idx+2] = c.B
			}
		}
	}

	dict := parse.Dict{
		"Type":             parse.Name("XObject"),
		"Subtype":          parse.Name("Image"),
		"Width":            parse.Integer(width),
		"Height":           parse.Integer(height),
		"ColorSpace":       colorSpace,
		"BitsPerComponent": parse.Integer(8),
	}

	info := &ImageInfo{
		Width:      width,
		Height:     height,
		ColorSpace: colorSpace,
	}

	if !isOpaque(img) {
		alphaMask := make([]byte, width*height)
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				_, _, _, a := img.At(x+bounds.Min.X, y+bounds.Min.Y).RGBA()
				alphaMask[y*width+x] = uint8(a >> 8)
			}
		}
		maskDict := parse.Dict{
			"Type":             parse.Name("XObject"),
			"Subtype":          parse.Name("Image"),
			"Width":            parse.Integer(width),
			"Height":           parse.Integer(height),
			"ColorSpace":       parse.Name("DeviceGray"),
			"BitsPerComponent": parse.Integer(8),
		}
		maskObjNum := w.AddStreamObject(maskDict, alphaMask, true)
		dict["SMask"] = parse.Reference{Number: maskObjNum}
		info.HasMask = true
	}

	info.ObjectNum = w.AddStreamObject(dict, rawData, true)
	return info
}

// isOpaque reports whether every pixel of img is fully opaque
func isOpaque(img image.Image) bool {
	if o, ok := img.(interface{ Opaque() bool }); ok {
		return o.Opaque()
	}
	bounds := img.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if _, _, _, a := img.At(x, y).RGBA(); a != 0xffff {
				return false
			}
		}
	}
	return true
}

// parseJPEGHeader parses a JPEG header to extract width, height, and color space
func parseJPEGHeader(data []byte) (width, height int, colorSpace parse.Name, err error) {
	if len(data) < 2 || data[0] != 0xFF || data[1] != 0xD8 {
		return 0, 0, "", fmt.Errorf("not a valid JPEG (missing SOI)")
	}

	pos := 2
	for pos < len(data)-1 {
		if data[pos] != 0xFF {
			pos++
			continue
		}

		marker := data[pos+1]
		pos += 2

		// Skip padding
		if marker == 0xFF {
			pos--
			continue
		}

		// SOF0-SOF3: baseline, extended, progressive, lossless
		if marker >= 0xC0 && marker <= 0xC3 {
			if pos+8 > len(data) {
				return 0, 0, "", fmt.Errorf("truncated SOF segment")
			}

			// Skip length (2 bytes), precision (1 byte)
			height = int(binary.BigEndian.Uint16(data[pos+3 : pos+5]))
			width = int(binary.BigEndian.Uint16(data[pos+5 : pos+7]))

			switch data[pos+7] {
			case 1:
				colorSpace = "DeviceGray"
			case 4:
				colorSpace = "DeviceCMYK"
			default:
				colorSpace = "DeviceRGB"
			}

			return width, height, colorSpace, nil
		}

		if pos+1 >= len(data) {
			break
		}
		segmentLength := int(binary.BigEndian.Uint16(data[pos : pos+2]))
		pos += segmentLength
	}

	return 0, 0, "", fmt.Errorf("no SOF marker found")
}
