package exporter

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
)

// JPEG quality per tier.
const (
	aviQualityHigh     = 90
	aviQualityStandard = 70
)

// AVIEncoder collects JPEG-compressed frames and assembles a Motion-JPEG
// AVI container on Finish. Everything is held in memory; the export
// contract is one final blob, not a stream.
type AVIEncoder struct {
	width   int
	height  int
	fps     int
	quality int
	frames  [][]byte
	started bool
}

// NewAVIEncoder creates an unstarted encoder.
func NewAVIEncoder() *AVIEncoder {
	return &AVIEncoder{}
}

// Begin fixes the frame geometry and encoding tier.
func (e *AVIEncoder) Begin(width, height, fps int, q Quality) error {
	if width <= 0 || height <= 0 || fps <= 0 {
		return fmt.Errorf("avi: invalid geometry %dx%d@%d", width, height, fps)
	}
	e.width, e.height, e.fps = width, height, fps
	e.quality = aviQualityHigh
	if q == QualityStandard {
		e.quality = aviQualityStandard
	}
	e.started = true
	return nil
}

// WriteFrame JPEG-compresses one frame.
func (e *AVIEncoder) WriteFrame(frame *image.RGBA) error {
	if !e.started {
		return errors.New("avi: WriteFrame before Begin")
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, frame, &jpeg.Options{Quality: e.quality}); err != nil {
		return fmt.Errorf("avi: encoding frame: %w", err)
	}
	e.frames = append(e.frames, buf.Bytes())
	return nil
}

// Finish assembles the RIFF/AVI file around the collected frames.
func (e *AVIEncoder) Finish() ([]byte, string, string, error) {
	if !e.started {
		return nil, "", "", errors.New("avi: Finish before Begin")
	}
	if len(e.frames) == 0 {
		return nil, "", "", errors.New("avi: no frames captured")
	}

	var maxFrame int
	for _, f := range e.frames {
		if len(f) > maxFrame {
			maxFrame = len(f)
		}
	}

	var movi bytes.Buffer
	movi.WriteString("movi")
	type idxEntry struct{ offset, size uint32 }
	index := make([]idxEntry, 0, len(e.frames))
	for _, f := range e.frames {
		// Offsets in idx1 point at the chunk fourcc, relative to the
		// start of the movi list data.
		index = append(index, idxEntry{offset: uint32(movi.Len()), size: uint32(len(f))})
		movi.WriteString("00dc")
		binary.Write(&movi, binary.LittleEndian, uint32(len(f)))
		movi.Write(f)
		if len(f)%2 == 1 {
			movi.WriteByte(0) // chunks are word-aligned
		}
	}

	hdrl := e.buildHeaderList(maxFrame)

	var idx1 bytes.Buffer
	idx1.WriteString("idx1")
	binary.Write(&idx1, binary.LittleEndian, uint32(16*len(index)))
	for _, entry := range index {
		idx1.WriteString("00dc")
		binary.Write(&idx1, binary.LittleEndian, uint32(0x10)) // AVIIF_KEYFRAME
		binary.Write(&idx1, binary.LittleEndian, entry.offset)
		binary.Write(&idx1, binary.LittleEndian, entry.size)
	}

	var out bytes.Buffer
	riffSize := 4 + // "AVI "
		8 + hdrl.Len() +
		8 + movi.Len() +
		idx1.Len()
	out.WriteString("RIFF")
	binary.Write(&out, binary.LittleEndian, uint32(riffSize))
	out.WriteString("AVI ")
	out.WriteString("LIST")
	binary.Write(&out, binary.LittleEndian, uint32(hdrl.Len()))
	out.Write(hdrl.Bytes())
	out.WriteString("LIST")
	binary.Write(&out, binary.LittleEndian, uint32(movi.Len()))
	out.Write(movi.Bytes())
	out.Write(idx1.Bytes())

	return out.Bytes(), "video/x-msvideo", "avi", nil
}

// buildHeaderList writes the hdrl list body: the main AVI header and the
// single video stream's header pair.
func (e *AVIEncoder) buildHeaderList(maxFrame int) *bytes.Buffer {
	frames := uint32(len(e.frames))
	bufSize := uint32(maxFrame)

	var strl bytes.Buffer
	strl.WriteString("strl")
	strl.WriteString("strh")
	binary.Write(&strl, binary.LittleEndian, uint32(56))
	strl.WriteString("vids")
	strl.WriteString("MJPG")
	binary.Write(&strl, binary.LittleEndian, uint32(0))          // flags
	binary.Write(&strl, binary.LittleEndian, uint32(0))          // priority+language
	binary.Write(&strl, binary.LittleEndian, uint32(0))          // initial frames
	binary.Write(&strl, binary.LittleEndian, uint32(1))          // scale
	binary.Write(&strl, binary.LittleEndian, uint32(e.fps))      // rate
	binary.Write(&strl, binary.LittleEndian, uint32(0))          // start
	binary.Write(&strl, binary.LittleEndian, frames)             // length
	binary.Write(&strl, binary.LittleEndian, bufSize)            // suggested buffer
	binary.Write(&strl, binary.LittleEndian, uint32(0xFFFFFFFF)) // quality: default
	binary.Write(&strl, binary.LittleEndian, uint32(0))          // sample size
	binary.Write(&strl, binary.LittleEndian, uint16(0))          // rcFrame
	binary.Write(&strl, binary.LittleEndian, uint16(0))
	binary.Write(&strl, binary.LittleEndian, uint16(e.width))
	binary.Write(&strl, binary.LittleEndian, uint16(e.height))

	strl.WriteString("strf")
	binary.Write(&strl, binary.LittleEndian, uint32(40))
	binary.Write(&strl, binary.LittleEndian, uint32(40)) // biSize
	binary.Write(&strl, binary.LittleEndian, int32(e.width))
	binary.Write(&strl, binary.LittleEndian, int32(e.height))
	binary.Write(&strl, binary.LittleEndian, uint16(1))  // planes
	binary.Write(&strl, binary.LittleEndian, uint16(24)) // bit count
	strl.WriteString("MJPG")
	binary.Write(&strl, binary.LittleEndian, uint32(e.width*e.height*3)) // image size
	binary.Write(&strl, binary.LittleEndian, int32(0))
	binary.Write(&strl, binary.LittleEndian, int32(0))
	binary.Write(&strl, binary.LittleEndian, uint32(0))
	binary.Write(&strl, binary.LittleEndian, uint32(0))

	var hdrl bytes.Buffer
	hdrl.WriteString("hdrl")
	hdrl.WriteString("avih")
	binary.Write(&hdrl, binary.LittleEndian, uint32(56))
	binary.Write(&hdrl, binary.LittleEndian, uint32(1000000/e.fps)) // usec per frame
	binary.Write(&hdrl, binary.LittleEndian, uint32(e.fps)*bufSize) // max bytes/sec
	binary.Write(&hdrl, binary.LittleEndian, uint32(0))             // padding
	binary.Write(&hdrl, binary.LittleEndian, uint32(0x10))          // AVIF_HASINDEX
	binary.Write(&hdrl, binary.LittleEndian, frames)
	binary.Write(&hdrl, binary.LittleEndian, uint32(0)) // initial frames
	binary.Write(&hdrl, binary.LittleEndian, uint32(1)) // streams
	binary.Write(&hdrl, binary.LittleEndian, bufSize)
	binary.Write(&hdrl, binary.LittleEndian, uint32(e.width))
	binary.Write(&hdrl, binary.LittleEndian, uint32(e.height))
	binary.Write(&hdrl, binary.LittleEndian, [4]uint32{}) // reserved
	hdrl.WriteString("LIST")
	binary.Write(&hdrl, binary.LittleEndian, uint32(strl.Len()))
	hdrl.Write(strl.Bytes())

	return &hdrl
}
