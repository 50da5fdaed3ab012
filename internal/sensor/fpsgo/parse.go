package fpsgo

import (
	"strconv"
	"strings"
)

const (
	// fbt_info: the row under the "enable ... vsync" header
	frametimeLine     = 8
	frametimeEnabled  = 0
	frametimeVsync    = 6
	fpsColumn         = 3
	statusHeaderLines = 1
	statusFooterLines = 3
)

// ParseFrameTime extracts the latest vsync timestamp from fbt/fbt_info.
// It reports false when fpsgo is disabled or the table is malformed.
//
//	enable	idleprefer	max_blc	max_pid	max_bufID	dfps	vsync
//	1	0		13	8606	0x136d00000021	120	15827015268850
func ParseFrameTime(fbtInfo string) (uint64, bool) {
	lines := strings.Split(fbtInfo, "\n")
	if len(lines) <= frametimeLine {
		return 0, false
	}

	fields := strings.Fields(lines[frametimeLine])
	if len(fields) <= frametimeVsync {
		return 0, false
	}

	enabled, err := strconv.ParseUint(fields[frametimeEnabled], 10, 64)
	if err != nil || enabled != 1 {
		return 0, false
	}

	stamp, err := strconv.ParseUint(fields[frametimeVsync], 10, 64)
	if err != nil {
		return 0, false
	}

	return stamp, true
}

// ParseFPS returns the highest current FPS among the surfaces listed in
// fstb/fpsgo_status. The first line is a header and the last three lines
// are fstb metadata. Negative values mark inactive surfaces and are skipped.
//
//	tid	bufID		name		currentFPS	targetFPS	...
//	23480	0x5b9800000038	bin.mt.plus	60		60		...
//	fstb_self_ctrl_fps_enable:1
//	fstb_is_cam_active:0
//	dfps_ceiling:60
func ParseFPS(fpsgoStatus string) (uint32, bool) {
	lines := strings.Split(strings.TrimRight(fpsgoStatus, "\r\n"), "\n")
	if len(lines) <= statusHeaderLines+statusFooterLines {
		return 0, false
	}

	var (
		maxFPS uint32
		found  bool
	)

	for _, line := range lines[statusHeaderLines : len(lines)-statusFooterLines] {
		fields := strings.Fields(line)
		if len(fields) <= fpsColumn {
			continue
		}

		fps, err := strconv.ParseUint(fields[fpsColumn], 10, 32)
		if err != nil {
			continue
		}

		if !found || uint32(fps) > maxFPS {
			maxFPS = uint32(fps)
			found = true
		}
	}

	return maxFPS, found
}
