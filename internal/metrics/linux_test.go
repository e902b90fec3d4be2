package metrics

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/serverdeck/serverdeck/internal/types"
	"github.com/serverdeck/serverdeck/log2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const procStat1 = `cpu  100 0 100 800 0 0 0 0 0 0
cpu0 100 0 100 800 0 0 0 0 0 0
btime 1700000000
`

const procStat2 = `cpu  150 0 150 900 0 0 0 0 0 0
cpu0 150 0 150 900 0 0 0 0 0 0
btime 1700000000
`

const procMeminfo = `MemTotal:        1024000 kB
MemFree:          100000 kB
MemAvailable:     614400 kB
Buffers:           10000 kB
Cached:           200000 kB
`

const procNetDev = `Inter-|   Receive                                                |  Transmit
 face |bytes    packets errs drop fifo frame compressed multicast|bytes    packets errs drop fifo colls carrier compressed
    lo:    1234      10    0    0    0     0          0         0     1234      10    0    0    0     0       0          0
  eth0:    5000      50    0    0    0     0          0         0     7000      70    0    0    0     0       0          0
`

func writeFile(t testing.TB, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func newFixture(t testing.TB) (*Linux, string) {
	root := t.TempDir()
	proc := filepath.Join(root, "proc")
	sys := filepath.Join(root, "sys")
	writeFile(t, filepath.Join(proc, "stat"), procStat1)
	writeFile(t, filepath.Join(proc, "meminfo"), procMeminfo)
	writeFile(t, filepath.Join(proc, "net/dev"), procNetDev)
	zone := filepath.Join(sys, "class/thermal/thermal_zone0")
	writeFile(t, filepath.Join(zone, "type"), "cpu-thermal\n")
	writeFile(t, filepath.Join(zone, "temp"), "48312\n")
	writeFile(t, filepath.Join(zone, "policy"), "step_wise\n")
	osRelease := filepath.Join(root, "os-release")
	writeFile(t, osRelease, "NAME=\"Debian GNU/Linux\"\nPRETTY_NAME=\"Debian GNU/Linux 12 (bookworm)\"\nID=debian\n")

	l, err := NewLinux(log2.NewTest(t, log2.LDebug), Config{ProcPath: proc, SysPath: sys, OSRelease: osRelease})
	require.NoError(t, err)
	l.now = func() time.Time { return time.Date(2024, 3, 1, 9, 5, 7, 0, time.UTC) }
	return l, proc
}

func read(t testing.TB, l *Linux, name string, args ...string) types.Reading {
	t.Helper()
	r, err := l.Read(context.Background(), name, args)
	require.NoError(t, err, name)
	return r
}

func TestLinuxFixture(t *testing.T) {
	t.Parallel()

	l, proc := newFixture(t)
	cases := []struct {
		name   string
		args   []string
		expect []string
	}{
		{"get_os_info", nil, []string{"Debian GNU/Linux 12 (bookworm)"}},
		{"get_cpu_temperature", nil, []string{"48.3°C"}},
		{"get_ram_percent", nil, []string{"40.0%"}},
		{"get_ram_summary", nil, []string{"400/1000MB"}},
		{"get_ram_info", nil, []string{"40.0%", "400/1000MB"}},
		{"get_current_time", nil, []string{"09:05:07"}},
		{"get_current_time", []string{"2006-01-02"}, []string{"2024-03-01"}},
	}
	for _, c := range cases {
		assert.Equal(t, c.expect, read(t, l, c.name, c.args...).Values, c.name)
	}

	assert.Equal(t, uint64(5000), read(t, l, "get_interface_rx", "eth0").Counter)
	assert.Equal(t, uint64(7000), read(t, l, "get_interface_tx", "eth0").Counter)
	_, err := l.Read(context.Background(), "get_interface_rx", []string{"wlan9"})
	assert.Error(t, err)

	// first call: since boot, 200 busy of 1000
	assert.Equal(t, []string{"20.0%"}, read(t, l, "get_cpu_usage").Values)
	writeFile(t, filepath.Join(proc, "stat"), procStat2)
	// delta: 100 busy of 200
	assert.Equal(t, []string{"50.0%"}, read(t, l, "get_cpu_usage").Values)
}

func TestLinuxSyscalls(t *testing.T) {
	t.Parallel()

	l, _ := newFixture(t)
	for _, name := range []string{"get_hostname", "get_kernel_version", "get_uptime", "get_cpu_cores", "get_ip_address"} {
		r := read(t, l, name)
		require.Len(t, r.Values, 1, name)
		assert.NotEmpty(t, r.Values[0], name)
	}
	r := read(t, l, "get_disk_space", t.TempDir())
	require.Len(t, r.Values, 2)
	assert.Regexp(t, `^\d+\.\d%$`, r.Values[0])
	assert.Regexp(t, `^\d+\.\dG/\d+\.\dG$`, r.Values[1])
	assert.Len(t, read(t, l, "get_disk_percent", "/").Values, 1)

	_, err := l.Read(context.Background(), "get_disk_percent", []string{"/nonexistent/path"})
	assert.Error(t, err)
	_, err = l.Read(context.Background(), "get_weather", nil)
	assert.Error(t, err)
}

func TestReadCancelled(t *testing.T) {
	t.Parallel()

	l, _ := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := l.Read(ctx, "get_hostname", nil)
	assert.Error(t, err)
}

func TestFormat(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "15.7%", formatPercent(15.66))
	assert.Equal(t, "61.2°C", formatCelsius(61.234))
	assert.Equal(t, "512/1024MB", formatMB(512*mib, 1024*mib))
	assert.Equal(t, "3.5G/29.0G", formatGB(3.5*gib, 29*gib))
	assert.Equal(t, "1.5 GHz", formatHz(1.5e9))
	assert.Equal(t, "3d 4h 12m", formatUptime(76*time.Hour+12*time.Minute+5*time.Second))
	assert.Equal(t, "4h 0m", formatUptime(4*time.Hour))
	assert.Equal(t, "2m 5s", formatUptime(125*time.Second))
	assert.Equal(t, 0.0, percentOf(1, 0))
}
