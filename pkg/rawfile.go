package rawfit

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"unsafe"
)

// rawEventMagic marks the start of an event block in a raw signal file.
const rawEventMagic uint32 = 0x46574152 // "RAWF"

// RawEventHeader is the on-disk header of one event block. It is followed
// by NSignals blocks of one int32 daq channel id plus NBins little-endian
// int16 samples.
type RawEventHeader struct {
	Magic     uint32
	RunNumber uint32
	EventID   uint32
	NSignals  uint32
	NBins     uint32
	_         uint32 // pad, keeps the encoded size equal to the in-memory size
	Timestamp uint64
}

func (h RawEventHeader) Valid() bool {
	return h.Magic == rawEventMagic
}

func (h RawEventHeader) payloadSize() int {
	return int(h.NSignals) * (4 + 2*int(h.NBins))
}

// ReadEventFromFile reads the next event header and its payload. io.EOF is
// returned at a clean end of file.
func ReadEventFromFile(file *os.File) (RawEventHeader, []byte, error) {
	var header RawEventHeader
	headerSize := int(unsafe.Sizeof(header))
	headerBinary := make([]byte, headerSize)
	if _, err := io.ReadFull(file, headerBinary); err != nil {
		if err == io.ErrUnexpectedEOF {
			err = io.EOF
		}
		return header, nil, err
	}

	headerReader := bytes.NewReader(headerBinary)
	binary.Read(headerReader, binary.LittleEndian, &header)
	if !header.Valid() {
		offset, _ := file.Seek(0, io.SeekCurrent)
		return header, nil, &ErrBadEventHeader{Offset: offset - int64(headerSize), Reason: "bad magic"}
	}

	payload := make([]byte, header.payloadSize())
	if _, err := io.ReadFull(file, payload); err != nil {
		offset, _ := file.Seek(0, io.SeekCurrent)
		return header, nil, &ErrBadEventHeader{Offset: offset, Reason: "truncated payload"}
	}
	return header, payload, nil
}

// DecodeEvent builds a RawSignalEvent from an event payload. Daq channel
// ids are translated to signal ids through the readout mapping; a nil
// mapping keeps the channel id.
func DecodeEvent(payload []byte, header RawEventHeader, readout *ReadoutMapping) (*RawSignalEvent, error) {
	event := NewRawSignalEvent()
	event.RunNumber = header.RunNumber
	event.EventID = header.EventID
	event.Timestamp = header.Timestamp

	nBins := int(header.NBins)
	blockSize := 4 + 2*nBins
	for i := 0; i < int(header.NSignals); i++ {
		block := payload[i*blockSize : (i+1)*blockSize]
		channel := int(int32(binary.LittleEndian.Uint32(block[:4])))

		signalID := channel
		if readout != nil {
			signalID = readout.SignalID(channel)
		}

		s := NewRawSignal(nBins)
		s.ID = signalID
		for bin := 0; bin < nBins; bin++ {
			sample := int16(binary.LittleEndian.Uint16(block[4+2*bin:]))
			s.data[bin] = float64(sample)
		}
		event.AddSignal(s)
	}
	return event, nil
}

// WriteRawEvent serializes an event in the raw signal file format. Signal
// samples are truncated to int16, the acquisition sample width.
func WriteRawEvent(w io.Writer, event *RawSignalEvent) error {
	nBins := uint32(0)
	if event.GetNumberOfSignals() > 0 {
		nBins = uint32(event.GetSignal(0).GetNumberOfPoints())
	}
	header := RawEventHeader{
		Magic:     rawEventMagic,
		RunNumber: event.RunNumber,
		EventID:   event.EventID,
		NSignals:  uint32(event.GetNumberOfSignals()),
		NBins:     nBins,
		Timestamp: event.Timestamp,
	}
	if err := binary.Write(w, binary.LittleEndian, &header); err != nil {
		return err
	}
	for i := 0; i < event.GetNumberOfSignals(); i++ {
		s := event.GetSignal(i)
		if err := binary.Write(w, binary.LittleEndian, int32(s.ID)); err != nil {
			return err
		}
		samples := make([]int16, nBins)
		for bin := 0; bin < int(nBins) && bin < s.GetNumberOfPoints(); bin++ {
			samples[bin] = int16(s.GetRawData(bin))
		}
		if err := binary.Write(w, binary.LittleEndian, samples); err != nil {
			return err
		}
	}
	return nil
}

// CountEvents scans the whole file counting event blocks and returns the
// count and the run number, then rewinds to the beginning.
func CountEvents(file *os.File) (int, int) {
	evtCount := 0
	runNumber := 0
	for {
		header, _, err := ReadEventFromFile(file)
		if err != nil {
			if err != io.EOF {
				logError(fmt.Sprintf("error counting events: %v", err))
			}
			break
		}
		runNumber = int(header.RunNumber)
		evtCount++
	}
	file.Seek(0, io.SeekStart)
	return evtCount, runNumber
}
