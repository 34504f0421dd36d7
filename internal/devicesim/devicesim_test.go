package devicesim

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openfli/fli-go/pkg/proto"
)

const cameraYAML = `
model: ProLine PL16803
serial: PL0099001
class: camera
hwRevision: 0x0200
fwRevision: 0x0105
arrayArea: {ulx: 0, uly: 0, lrx: 4096, lry: 4096}
visibleArea: {ulx: 0, uly: 0, lrx: 4096, lry: 4096}
pixelSizeX: 9.0
pixelSizeY: 9.0
modes: ["1MHz", "8MHz", "12MHz"]
temperature: 21.0
maxTransfer: 32
`

func TestParseProfileYAML(t *testing.T) {
	p, err := ParseProfile([]byte(cameraYAML))
	require.NoError(t, err)

	assert.Equal(t, "ProLine PL16803", p.Model)
	assert.Equal(t, "PL0099001", p.Serial)
	assert.Equal(t, uint16(0x0200), p.HWRevision)
	assert.Equal(t, int32(4096), p.ArrayArea.LRX)
	assert.Len(t, p.Modes, 3)
	assert.Equal(t, 32, p.MaxTransfer)

	class, err := p.deviceClass()
	require.NoError(t, err)
	assert.Equal(t, proto.ClassCamera, class)
}

func TestParseProfileBadClass(t *testing.T) {
	_, err := ParseProfile([]byte("class: toaster\n"))
	assert.Error(t, err)
}

func TestScanSortedAndConnect(t *testing.T) {
	bus := NewTransport()
	_, err := bus.Add("b", FocuserProfile())
	require.NoError(t, err)
	_, err = bus.Add("a", CameraProfile())
	require.NoError(t, err)

	records, err := bus.Scan()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "sim:a", records[0].Address)
	assert.Equal(t, "sim:b", records[1].Address)
	assert.Equal(t, proto.ClassCamera, records[0].Class)

	_, err = bus.Connect("sim:missing")
	assert.ErrorIs(t, err, proto.ErrNotFound)

	assert.ErrorIs(t, bus.ValidateAddress("usb:a"), proto.ErrInvalidArgument)
	assert.ErrorIs(t, bus.ValidateAddress("sim:"), proto.ErrInvalidArgument)
}

func TestSessionReadTimesOut(t *testing.T) {
	bus := NewTransport()
	_, err := bus.Add("cam", CameraProfile())
	require.NoError(t, err)

	sess, err := bus.Connect("sim:cam")
	require.NoError(t, err)
	defer sess.Close()

	buf := make([]byte, 16)
	_, err = sess.Read(buf, 10*time.Millisecond)
	assert.ErrorIs(t, err, proto.ErrTimeout)
}

func TestExchangeAcrossSmallTransfers(t *testing.T) {
	p := CameraProfile()
	p.MaxTransfer = 8

	bus := NewTransport()
	_, err := bus.Add("cam", p)
	require.NoError(t, err)

	sess, err := bus.Connect("sim:cam")
	require.NoError(t, err)
	defer sess.Close()
	assert.Equal(t, 8, sess.MaxTransferSize())

	eng := proto.NewEngine(sess)
	resp, err := eng.Exchange(proto.OpIdentify, nil)
	require.NoError(t, err)

	id, err := proto.ParseIdentity(resp)
	require.NoError(t, err)
	assert.Equal(t, proto.ClassCamera, id.Class)
	assert.Equal(t, "MicroLine ML1001E", id.Model)
}

func TestFramesParsedAcrossWriteBoundaries(t *testing.T) {
	bus := NewTransport()
	_, err := bus.Add("cam", CameraProfile())
	require.NoError(t, err)

	sess, err := bus.Connect("sim:cam")
	require.NoError(t, err)
	defer sess.Close()

	req, err := proto.Request{Op: proto.OpGetSerial}.Encode()
	require.NoError(t, err)

	// Feed the frame one byte at a time; the response appears only
	// once the last byte lands.
	for i, b := range req {
		_, err := sess.Write([]byte{b})
		require.NoError(t, err)

		buf := make([]byte, 64)
		if i < len(req)-1 {
			_, err := sess.Read(buf, time.Millisecond)
			require.True(t, errors.Is(err, proto.ErrTimeout),
				"byte %d: expected timeout, got %v", i, err)
		}
	}

	hdr := make([]byte, proto.ResponseHeaderSize)
	n, err := sess.Read(hdr, time.Second)
	require.NoError(t, err)
	require.Equal(t, proto.ResponseHeaderSize, n)

	op, status, payloadLen, err := proto.ParseResponseHeader(hdr)
	require.NoError(t, err)
	assert.Equal(t, proto.OpGetSerial, op)
	assert.Equal(t, proto.StatusOK, status)
	assert.Greater(t, payloadLen, 0)
}
