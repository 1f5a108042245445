package capture

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Fixed capture format: 16 kHz mono 16-bit PCM.
const (
	wavSampleRate    = 16000
	wavChannels      = 1
	wavBitsPerSample = 16
	wavBlockAlign    = wavChannels * wavBitsPerSample / 8
	wavBytesPerSec   = wavSampleRate * wavBlockAlign

	wavHeaderSize = 44

	// byte offsets of the two size fields patched after streaming
	wavRiffSizeOffset = 4
	wavDataSizeOffset = 40
)

// writeWAVHeader writes a canonical PCM WAV header with the given data size.
// Callers streaming an unknown amount of data pass 0 and patch later.
func writeWAVHeader(w io.Writer, dataLen uint32) error {
	var hdr [wavHeaderSize]byte
	copy(hdr[0:], "RIFF")
	binary.LittleEndian.PutUint32(hdr[4:], 36+dataLen)
	copy(hdr[8:], "WAVE")
	copy(hdr[12:], "fmt ")
	binary.LittleEndian.PutUint32(hdr[16:], 16) // PCM chunk size
	binary.LittleEndian.PutUint16(hdr[20:], 1)  // PCM format
	binary.LittleEndian.PutUint16(hdr[22:], wavChannels)
	binary.LittleEndian.PutUint32(hdr[24:], wavSampleRate)
	binary.LittleEndian.PutUint32(hdr[28:], wavBytesPerSec)
	binary.LittleEndian.PutUint16(hdr[32:], wavBlockAlign)
	binary.LittleEndian.PutUint16(hdr[34:], wavBitsPerSample)
	copy(hdr[36:], "data")
	binary.LittleEndian.PutUint32(hdr[40:], dataLen)

	_, err := w.Write(hdr[:])
	return err
}

// patchWAVSizes rewrites the RIFF and data size fields once the streamed
// byte count is known.
func patchWAVSizes(ws io.WriteSeeker, dataLen uint32) error {
	var buf [4]byte

	binary.LittleEndian.PutUint32(buf[:], 36+dataLen)
	if _, err := ws.Seek(wavRiffSizeOffset, io.SeekStart); err != nil {
		return fmt.Errorf("seek riff size: %w", err)
	}
	if _, err := ws.Write(buf[:]); err != nil {
		return fmt.Errorf("patch riff size: %w", err)
	}

	binary.LittleEndian.PutUint32(buf[:], dataLen)
	if _, err := ws.Seek(wavDataSizeOffset, io.SeekStart); err != nil {
		return fmt.Errorf("seek data size: %w", err)
	}
	if _, err := ws.Write(buf[:]); err != nil {
		return fmt.Errorf("patch data size: %w", err)
	}
	return nil
}
