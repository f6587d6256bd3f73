package runner

import (
	"os"

	"github.com/pkg/errors"
	"github.com/shirou/gopsutil/process"
)

// ProcessRSS returns the resident set size of this process in bytes.
func ProcessRSS() (uint64, error) {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return 0, errors.Wrap(err, "inspect process")
	}
	info, err := p.MemoryInfo()
	if err != nil {
		return 0, errors.Wrap(err, "read memory info")
	}
	return info.RSS, nil
}
