package collector

// Counter declares one counter a metric group requests, with an optional
// fixed unit conversion applied atop the derived value. Conversions are
// deterministic constants tied to the counter, never configurable.
type Counter struct {
	Name   string
	Factor float64 // multiplied into the derived value; 0 means unscaled
	Unit   string  // output unit after conversion; empty keeps the metadata unit
}

// Group declares one named metric group over a single filer object type.
// Singleton groups produce exactly one instance with an empty instance
// name. AllDescribed groups derive every counter the filer describes for
// the object instead of a fixed list; Flatten merges all instances of the
// object into one snapshot with instance-prefixed counter names (used for
// the per-processor namespace).
type Group struct {
	Name         string
	Object       string
	Singleton    bool
	AllDescribed bool
	Flatten      bool
	Counters     []Counter
}

const (
	// blocksToMiB converts 4096-byte block counts per second to MiB/s.
	blocksToMiB = 4096.0 / (1024 * 1024)

	// kbToMiB converts KiB/s counters to MiB/s.
	kbToMiB = 1.0 / 1024

	// bytesToMiB converts byte throughput to MiB/s.
	bytesToMiB = 1.0 / (1024 * 1024)

	// usToMs converts microsecond latencies to milliseconds.
	usToMs = 1.0 / 1000
)

// BuiltinGroups returns the shipped metric groups keyed by name.
func BuiltinGroups() map[string]Group {
	groups := []Group{
		{
			Name:      "system",
			Object:    "system",
			Singleton: true,
			Counters: []Counter{
				{Name: "cpu_busy", Unit: "%"},
				{Name: "avg_processor_busy", Unit: "%"},
				{Name: "total_ops", Unit: "/s"},
				{Name: "nfs_ops", Unit: "/s"},
				{Name: "cifs_ops", Unit: "/s"},
				{Name: "net_data_recv", Factor: kbToMiB, Unit: "MiB/s"},
				{Name: "net_data_sent", Factor: kbToMiB, Unit: "MiB/s"},
				{Name: "disk_data_read", Factor: kbToMiB, Unit: "MiB/s"},
				{Name: "disk_data_written", Factor: kbToMiB, Unit: "MiB/s"},
			},
		},
		{
			Name:      "nfsv3",
			Object:    "nfsv3",
			Singleton: true,
			Counters: []Counter{
				{Name: "nfsv3_ops", Unit: "/s"},
				{Name: "nfsv3_read_ops", Unit: "/s"},
				{Name: "nfsv3_write_ops", Unit: "/s"},
				{Name: "nfsv3_read_latency", Factor: usToMs, Unit: "ms"},
				{Name: "nfsv3_write_latency", Factor: usToMs, Unit: "ms"},
			},
		},
		{
			Name:      "cifs",
			Object:    "cifs",
			Singleton: true,
			Counters: []Counter{
				{Name: "cifs_ops", Unit: "/s"},
				{Name: "cifs_latency", Factor: usToMs, Unit: "ms"},
			},
		},
		{
			// Per-processor scheduler-domain busy percentages; the counter
			// namespace is synthesized by metadata expansion, so the group
			// derives everything the expanded metadata describes.
			Name:         "processor",
			Object:       "processor",
			Singleton:    true,
			AllDescribed: true,
			Flatten:      true,
		},
		{
			Name:   "volume",
			Object: "volume",
			Counters: []Counter{
				{Name: "read_ops", Unit: "/s"},
				{Name: "write_ops", Unit: "/s"},
				{Name: "other_ops", Unit: "/s"},
				{Name: "total_ops", Unit: "/s"},
				{Name: "avg_latency", Factor: usToMs, Unit: "ms"},
				{Name: "read_latency", Factor: usToMs, Unit: "ms"},
				{Name: "write_latency", Factor: usToMs, Unit: "ms"},
				{Name: "read_data", Factor: bytesToMiB, Unit: "MiB/s"},
				{Name: "write_data", Factor: bytesToMiB, Unit: "MiB/s"},
			},
		},
		{
			Name:   "aggregate",
			Object: "aggregate",
			Counters: []Counter{
				{Name: "total_transfers", Unit: "/s"},
				{Name: "user_reads", Unit: "/s"},
				{Name: "user_writes", Unit: "/s"},
				{Name: "cp_reads", Unit: "/s"},
				{Name: "user_read_blocks", Factor: blocksToMiB, Unit: "MiB/s"},
				{Name: "user_write_blocks", Factor: blocksToMiB, Unit: "MiB/s"},
			},
		},
	}

	byName := make(map[string]Group, len(groups))
	for _, g := range groups {
		byName[g.Name] = g
	}
	return byName
}
