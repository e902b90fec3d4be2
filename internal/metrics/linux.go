// Package metrics reads system health values from Linux /proc, /sys and syscalls.
package metrics

import (
	"bufio"
	"context"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/juju/errors"
	"github.com/prometheus/procfs"
	"github.com/prometheus/procfs/sysfs"
	"github.com/serverdeck/serverdeck/internal/types"
	"github.com/serverdeck/serverdeck/log2"
	"golang.org/x/sys/unix"
)

const NotConnected = "Not Connected"

type Config struct {
	ProcPath  string `hcl:"proc_path" yaml:"proc_path"`
	SysPath   string `hcl:"sys_path" yaml:"sys_path"`
	OSRelease string `hcl:"os_release" yaml:"os_release"`
	// ThermalZone type to prefer, e.g. "cpu-thermal" on Raspberry Pi.
	ThermalZone string `hcl:"thermal_zone" yaml:"thermal_zone"`
}

type readFunc func(ctx context.Context, args []string) (types.Reading, error)

type Linux struct {
	Log    *log2.Log
	config Config
	proc   procfs.FS
	sys    sysfs.FS
	now    func() time.Time
	reads  map[string]readFunc

	mu       sync.Mutex
	prevCPU  procfs.CPUStat
	havePrev bool
}

var _ types.MetricProvider = new(Linux)

func NewLinux(log *log2.Log, c Config) (*Linux, error) {
	if c.ProcPath == "" {
		c.ProcPath = procfs.DefaultMountPoint
	}
	if c.SysPath == "" {
		c.SysPath = sysfs.DefaultMountPoint
	}
	if c.OSRelease == "" {
		c.OSRelease = "/etc/os-release"
	}
	proc, err := procfs.NewFS(c.ProcPath)
	if err != nil {
		return nil, errors.Annotatef(err, "procfs path=%s", c.ProcPath)
	}
	sys, err := sysfs.NewFS(c.SysPath)
	if err != nil {
		return nil, errors.Annotatef(err, "sysfs path=%s", c.SysPath)
	}
	self := &Linux{
		Log:    log,
		config: c,
		proc:   proc,
		sys:    sys,
		now:    time.Now,
	}
	self.reads = map[string]readFunc{
		"get_hostname":          self.hostname,
		"get_os_info":           self.osInfo,
		"get_kernel_version":    self.kernel,
		"get_uptime":            self.uptime,
		"get_cpu_temperature":   self.cpuTemperature,
		"get_cpu_usage":         self.cpuUsage,
		"get_cpu_cores":         self.cpuCores,
		"get_cpu_frequency":     self.cpuFrequency,
		"get_cpu_max_frequency": self.cpuMaxFrequency,
		"get_ram_percent":       self.ram(0),
		"get_ram_summary":       self.ram(1),
		"get_ram_info":          self.ram(0, 1),
		"get_disk_percent":      self.disk(0),
		"get_disk_summary":      self.disk(1),
		"get_disk_space":        self.disk(0, 1),
		"get_ip_address":        self.ipAddress,
		"get_interface_ip":      self.interfaceIP,
		"get_interface_mac":     self.interfaceMAC,
		"get_interface_rx":      self.interfaceBytes(true),
		"get_interface_tx":      self.interfaceBytes(false),
		"get_current_time":      self.currentTime,
	}
	return self, nil
}

func (self *Linux) Read(ctx context.Context, name string, args []string) (types.Reading, error) {
	f, ok := self.reads[name]
	if !ok {
		return types.Reading{}, errors.NotSupportedf("metric=%s", name)
	}
	if err := ctx.Err(); err != nil {
		return types.Reading{}, err
	}
	r, err := f(ctx, args)
	return r, errors.Annotatef(err, "metric=%s", name)
}

func one(s string) types.Reading { return types.Reading{Values: []string{s}} }

func arg(args []string, i int, def string) string {
	if i < len(args) && args[i] != "" {
		return args[i]
	}
	return def
}

func (self *Linux) hostname(context.Context, []string) (types.Reading, error) {
	h, err := os.Hostname()
	return one(h), err
}

func (self *Linux) osInfo(context.Context, []string) (types.Reading, error) {
	f, err := os.Open(self.config.OSRelease)
	if err != nil {
		return types.Reading{}, err
	}
	defer f.Close()
	name := ""
	s := bufio.NewScanner(f)
	for s.Scan() {
		k, v, ok := strings.Cut(s.Text(), "=")
		if !ok {
			continue
		}
		v = strings.Trim(v, `"'`)
		switch k {
		case "PRETTY_NAME":
			return one(v), nil
		case "NAME":
			name = v
		}
	}
	if err := s.Err(); err != nil {
		return types.Reading{}, err
	}
	if name == "" {
		return types.Reading{}, errors.NotFoundf("PRETTY_NAME in %s", self.config.OSRelease)
	}
	return one(name), nil
}

func (self *Linux) kernel(context.Context, []string) (types.Reading, error) {
	var u unix.Utsname
	if err := unix.Uname(&u); err != nil {
		return types.Reading{}, err
	}
	return one(unix.ByteSliceToString(u.Release[:])), nil
}

func (self *Linux) uptime(context.Context, []string) (types.Reading, error) {
	var si unix.Sysinfo_t
	if err := unix.Sysinfo(&si); err != nil {
		return types.Reading{}, err
	}
	return one(formatUptime(time.Duration(si.Uptime) * time.Second)), nil
}

func (self *Linux) cpuTemperature(context.Context, []string) (types.Reading, error) {
	zones, err := self.sys.ClassThermalZoneStats()
	if err != nil {
		return types.Reading{}, err
	}
	if len(zones) == 0 {
		return types.Reading{}, errors.NotFoundf("thermal zone")
	}
	best := zones[0]
	for _, z := range zones {
		if self.config.ThermalZone != "" && z.Type == self.config.ThermalZone {
			best = z
			break
		}
		if strings.Contains(z.Type, "cpu") || strings.Contains(z.Type, "soc") || z.Type == "x86_pkg_temp" {
			best = z
		}
	}
	return one(formatCelsius(float64(best.Temp) / 1000)), nil
}

func cpuBusyTotal(s procfs.CPUStat) (busy, total float64) {
	idle := s.Idle + s.Iowait
	total = s.User + s.Nice + s.System + idle + s.IRQ + s.SoftIRQ + s.Steal
	return total - idle, total
}

// cpuUsage is share of busy time since previous call, since boot on first call.
func (self *Linux) cpuUsage(context.Context, []string) (types.Reading, error) {
	st, err := self.proc.Stat()
	if err != nil {
		return types.Reading{}, err
	}
	busy, total := cpuBusyTotal(st.CPUTotal)

	self.mu.Lock()
	if self.havePrev {
		pb, pt := cpuBusyTotal(self.prevCPU)
		busy, total = busy-pb, total-pt
	}
	self.prevCPU, self.havePrev = st.CPUTotal, true
	self.mu.Unlock()

	usage := 0.0
	if total > 0 {
		usage = busy / total * 100
	}
	if usage < 0 {
		usage = 0
	}
	return one(formatPercent(usage)), nil
}

func (self *Linux) cpuCores(context.Context, []string) (types.Reading, error) {
	n := runtime.NumCPU()
	if infos, err := self.proc.CPUInfo(); err == nil && len(infos) > 0 {
		n = len(infos)
	}
	return one(strconv.Itoa(n)), nil
}

func (self *Linux) cpuFrequency(context.Context, []string) (types.Reading, error) {
	return self.frequency(false)
}

func (self *Linux) cpuMaxFrequency(context.Context, []string) (types.Reading, error) {
	return self.frequency(true)
}

// frequency prefers cpufreq of first CPU (kHz), falls back to /proc/cpuinfo MHz.
func (self *Linux) frequency(max bool) (types.Reading, error) {
	if stats, err := self.sys.SystemCpufreq(); err == nil && len(stats) > 0 {
		s := stats[0]
		candidates := []*uint64{s.ScalingCurrentFrequency, s.CpuinfoCurrentFrequency}
		if max {
			candidates = []*uint64{s.CpuinfoMaximumFrequency, s.ScalingMaximumFrequency}
		}
		for _, khz := range candidates {
			if khz != nil && *khz > 0 {
				return one(formatHz(float64(*khz) * 1000)), nil
			}
		}
	}
	infos, err := self.proc.CPUInfo()
	if err != nil {
		return types.Reading{}, err
	}
	mhz := 0.0
	for _, info := range infos {
		if max && info.CPUMHz > mhz || !max && mhz == 0 {
			mhz = info.CPUMHz
		}
	}
	if mhz <= 0 {
		return types.Reading{}, errors.NotFoundf("cpu frequency")
	}
	return one(formatHz(mhz * 1e6)), nil
}

// ram returns selected values of [percent, "used/totalMB"].
func (self *Linux) ram(pick ...int) readFunc {
	return func(context.Context, []string) (types.Reading, error) {
		mi, err := self.proc.Meminfo()
		if err != nil {
			return types.Reading{}, err
		}
		if mi.MemTotal == nil {
			return types.Reading{}, errors.NotFoundf("MemTotal")
		}
		total := *mi.MemTotal * 1024
		var avail uint64
		switch {
		case mi.MemAvailable != nil:
			avail = *mi.MemAvailable * 1024
		case mi.MemFree != nil:
			avail = *mi.MemFree * 1024
			if mi.Buffers != nil {
				avail += *mi.Buffers * 1024
			}
			if mi.Cached != nil {
				avail += *mi.Cached * 1024
			}
		}
		used := total - avail
		if avail > total {
			used = 0
		}
		all := []string{formatPercent(percentOf(used, total)), formatMB(used, total)}
		return pickValues(all, pick), nil
	}
}

// disk returns selected values of [percent, "usedG/totalG"] for path argument.
func (self *Linux) disk(pick ...int) readFunc {
	return func(_ context.Context, args []string) (types.Reading, error) {
		path := arg(args, 0, "/")
		var st unix.Statfs_t
		if err := unix.Statfs(path, &st); err != nil {
			return types.Reading{}, errors.Annotatef(err, "statfs path=%s", path)
		}
		bsize := uint64(st.Bsize)
		total := st.Blocks * bsize
		used := (st.Blocks - st.Bfree) * bsize
		avail := st.Bavail * bsize
		all := []string{formatPercent(percentOf(used, used+avail)), formatGB(used, total)}
		return pickValues(all, pick), nil
	}
}

func pickValues(all []string, pick []int) types.Reading {
	out := make([]string, len(pick))
	for i, p := range pick {
		out[i] = all[p]
	}
	return types.Reading{Values: out}
}

func (self *Linux) ipAddress(context.Context, []string) (types.Reading, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return types.Reading{}, err
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagLoopback != 0 || iface.Flags&net.FlagUp == 0 {
			continue
		}
		if ip := firstIPv4(&iface); ip != "" {
			return one(ip), nil
		}
	}
	return one(NotConnected), nil
}

func (self *Linux) interfaceIP(_ context.Context, args []string) (types.Reading, error) {
	iface, err := net.InterfaceByName(arg(args, 0, ""))
	if err != nil {
		return types.Reading{}, err
	}
	if ip := firstIPv4(iface); ip != "" {
		return one(ip), nil
	}
	return one(NotConnected), nil
}

func (self *Linux) interfaceMAC(_ context.Context, args []string) (types.Reading, error) {
	iface, err := net.InterfaceByName(arg(args, 0, ""))
	if err != nil {
		return types.Reading{}, err
	}
	if len(iface.HardwareAddr) == 0 {
		return types.Reading{}, errors.NotFoundf("hardware address iface=%s", iface.Name)
	}
	return one(iface.HardwareAddr.String()), nil
}

func firstIPv4(iface *net.Interface) string {
	addrs, err := iface.Addrs()
	if err != nil {
		return ""
	}
	for _, a := range addrs {
		if ipnet, ok := a.(*net.IPNet); ok {
			if ip4 := ipnet.IP.To4(); ip4 != nil {
				return ip4.String()
			}
		}
	}
	return ""
}

// interfaceBytes returns raw byte counter, rate is derived by source registry.
func (self *Linux) interfaceBytes(rx bool) readFunc {
	return func(_ context.Context, args []string) (types.Reading, error) {
		name := arg(args, 0, "")
		nd, err := self.proc.NetDev()
		if err != nil {
			return types.Reading{}, err
		}
		line, ok := nd[name]
		if !ok {
			return types.Reading{}, errors.NotFoundf("interface=%s in %s", name, filepath.Join(self.config.ProcPath, "net/dev"))
		}
		if rx {
			return types.Reading{Counter: line.RxBytes}, nil
		}
		return types.Reading{Counter: line.TxBytes}, nil
	}
}

func (self *Linux) currentTime(_ context.Context, args []string) (types.Reading, error) {
	return one(self.now().Format(arg(args, 0, "15:04:05"))), nil
}
