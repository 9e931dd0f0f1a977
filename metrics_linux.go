//go:build linux

package ftp

import "golang.org/x/sys/unix"

// readTCPInfo reads TCP_INFO for fd via getsockopt. Returns ok=false if the
// socket is not TCP or the syscall fails, in which case Collect simply
// drops the connection from future sampling.
func readTCPInfo(fd int) (tcpInfoSample, bool) {
	info, err := unix.GetsockoptTCPInfo(fd, unix.SOL_TCP, unix.TCP_INFO)
	if err != nil {
		return tcpInfoSample{}, false
	}
	return tcpInfoSample{
		rttMicros:    info.Rtt,
		cwndSegments: info.Snd_cwnd,
		retransmits:  uint32(info.Retransmits),
	}, true
}
