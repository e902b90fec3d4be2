package touch

import (
	"fmt"
	"image"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/juju/errors"
	"github.com/serverdeck/serverdeck/internal/types"
	"github.com/serverdeck/serverdeck/log2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/temoto/inputevent-go"
)

func TestTransform(t *testing.T) {
	t.Parallel()

	screen := image.Point{X: 320, Y: 240}
	cases := []struct {
		name   string
		tr     Transform
		in     image.Point
		expect image.Point
	}{
		{"identity", Transform{Screen: screen}, image.Point{10, 20}, image.Point{10, 20}},
		{"clamp", Transform{Screen: screen}, image.Point{400, -5}, image.Point{319, 0}},
		// portrait controller on landscape panel: ui_x = touch_y, ui_y = height-1-touch_x
		{"swap+invert", Transform{Screen: screen, SwapXY: true, InvertY: true}, image.Point{10, 300}, image.Point{300, 229}},
		{"scale", Transform{Screen: screen, MaxX: 4095, MaxY: 4095}, image.Point{4095, 0}, image.Point{319, 0}},
		{"invert-x", Transform{Screen: screen, InvertX: true}, image.Point{0, 0}, image.Point{319, 0}},
	}
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			x, y := c.tr.Apply(c.in.X, c.in.Y)
			assert.Equal(t, c.expect, image.Point{x, y})
		})
	}
}

func TestQueueOverflow(t *testing.T) {
	t.Parallel()

	q := NewQueue(log2.NewTest(t, log2.LDebug), 2, nil)
	_, ok := q.Poll()
	assert.False(t, ok)

	for i := 1; i <= 3; i++ {
		q.Emit(types.TouchEvent{X: i, Phase: types.TouchMove})
	}
	e, ok := q.Poll()
	require.True(t, ok)
	assert.Equal(t, 2, e.X)
	e, ok = q.PollTouch()
	require.True(t, ok)
	assert.Equal(t, 3, e.X)
	_, ok = q.Poll()
	assert.False(t, ok)
}

type sliceSource struct{ events []types.TouchEvent }

func (s *sliceSource) String() string { return "slice" }
func (s *sliceSource) Read() (types.TouchEvent, error) {
	if len(s.events) == 0 {
		return types.TouchEvent{}, io.EOF
	}
	e := s.events[0]
	s.events = s.events[1:]
	return e, nil
}

func TestQueueRun(t *testing.T) {
	t.Parallel()

	q := NewQueue(log2.NewTest(t, log2.LError), 0, make(chan struct{}))
	q.SetTransform(Transform{Screen: image.Point{X: 100, Y: 100}, InvertX: true})
	q.Run([]Source{nil, &sliceSource{events: []types.TouchEvent{
		{X: 0, Y: 5, Phase: types.TouchDown},
		{X: 0, Y: 5, Phase: types.TouchUp},
	}}})
	q.Wait()

	e, ok := q.Poll()
	require.True(t, ok)
	assert.Equal(t, types.TouchDown, e.Phase)
	assert.Equal(t, image.Point{99, 5}, e.Point())
	e, ok = q.Poll()
	require.True(t, ok)
	assert.Equal(t, types.TouchUp, e.Phase)
}

type flakySource struct {
	sliceSource
	fails int
}

func (s *flakySource) Read() (types.TouchEvent, error) {
	if s.fails > 0 {
		s.fails--
		return types.TouchEvent{}, errors.New("i2c: remote I/O error")
	}
	return s.sliceSource.Read()
}

func TestQueueRetry(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var lines []string
	log := log2.NewFunc(func(format string, args ...interface{}) {
		mu.Lock()
		lines = append(lines, fmt.Sprintf(format, args...))
		mu.Unlock()
	}, log2.LError)
	q := NewQueue(log, 0, make(chan struct{}))
	q.Retry.Min = time.Millisecond
	q.Retry.Max = 4 * time.Millisecond
	q.Run([]Source{&flakySource{fails: 4, sliceSource: sliceSource{events: []types.TouchEvent{
		{X: 7, Y: 5, Phase: types.TouchDown},
	}}}})
	q.Wait()

	e, ok := q.Poll()
	require.True(t, ok)
	assert.Equal(t, types.TouchDown, e.Phase)
	assert.Equal(t, 7, e.X)
	_, ok = q.Poll()
	assert.False(t, ok, "failed reads must not produce events")

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, lines, 4)
	for i, expect := range []string{"retry in 1ms", "retry in 2ms", "retry in 4ms", "retry in 4ms"} {
		assert.Contains(t, lines[i], expect)
	}
}

func TestQueueRetryNoEvents(t *testing.T) {
	t.Parallel()

	q := NewQueue(log2.NewTest(t, log2.LError), 0, make(chan struct{}))
	q.Retry.Min = time.Millisecond
	q.Run([]Source{&flakySource{fails: 3}})
	q.Wait()
	_, ok := q.Poll()
	assert.False(t, ok)
}

func TestQueueRetryStop(t *testing.T) {
	t.Parallel()

	stop := make(chan struct{})
	q := NewQueue(log2.NewTest(t, log2.LError), 0, stop)
	q.Run([]Source{&flakySource{fails: 1 << 20}})
	close(stop)
	q.Wait()
	_, ok := q.Poll()
	assert.False(t, ok)
}

func TestEvdevState(t *testing.T) {
	t.Parallel()

	now := time.Now()
	var s evdevState
	feed := func(typ, code uint16, value int32) (types.TouchEvent, bool) {
		return s.feed(inputevent.InputEvent{Type: typ, Code: code, Value: value}, now)
	}
	_, ok := feed(evKey, btnTouch, 1)
	assert.False(t, ok)
	feed(evAbs, absX, 120)
	feed(evAbs, absY, 40)
	e, ok := feed(evSyn, synReport, 0)
	require.True(t, ok)
	assert.Equal(t, types.TouchDown, e.Phase)
	assert.Equal(t, image.Point{120, 40}, e.Point())

	// no change, no event
	_, ok = feed(evSyn, synReport, 0)
	assert.False(t, ok)

	feed(evAbs, absMtPositionX, 60)
	e, ok = feed(evSyn, synReport, 0)
	require.True(t, ok)
	assert.Equal(t, types.TouchMove, e.Phase)
	assert.Equal(t, 60, e.X)

	feed(evAbs, absMtTrackingID, -1)
	e, ok = feed(evSyn, synReport, 0)
	require.True(t, ok)
	assert.Equal(t, types.TouchUp, e.Phase)
	assert.Equal(t, image.Point{60, 40}, e.Point())
}

type fakeI2C struct {
	samples [][]byte // per register read, in order
}

func (f *fakeI2C) Tx(w, r []byte) error {
	if len(f.samples) == 0 {
		return io.EOF
	}
	copy(r, f.samples[0])
	f.samples = f.samples[1:]
	return nil
}

func TestCST816(t *testing.T) {
	t.Parallel()

	dev := &fakeI2C{samples: [][]byte{
		{1}, {0x00, 0x0a, 0x01, 0x2c}, // down 10,300
		{1}, {0x00, 0x0a, 0x01, 0x2c}, // same point, nothing
		{1}, {0x00, 0x64, 0x01, 0x2c}, // move 100,300
		{0}, // up
	}}
	c := &CST816{dev: dev}
	expect := []struct {
		phase types.TouchPhase
		x, y  int
	}{
		{types.TouchDown, 10, 300},
		{types.TouchMove, 100, 300},
		{types.TouchUp, 100, 300},
	}
	for _, x := range expect {
		e, err := c.Read()
		require.NoError(t, err)
		assert.Equal(t, x.phase, e.Phase)
		assert.Equal(t, image.Point{x.x, x.y}, e.Point())
	}
	_, err := c.Read()
	assert.Error(t, err)
	assert.NoError(t, c.Close())
}

func TestNewUnknown(t *testing.T) {
	t.Parallel()

	s, err := New(Config{Driver: DriverNone})
	assert.NoError(t, err)
	assert.Nil(t, s)
	_, err = New(Config{Driver: "ps2"})
	assert.Error(t, err)
	_, err = New(Config{Driver: DriverCST816, I2CAddr: 0x80})
	assert.True(t, errors.IsNotValid(err), "err=%v", err)
}
