package ftp

import (
	"net"
	"sync"

	"github.com/higebu/netfd"
	"github.com/prometheus/client_golang/prometheus"
)

// TCPInfoCollector is an optional Prometheus collector that samples
// kernel-reported TCP statistics (RTT, congestion window, retransmits) from
// the data sockets of in-flight transfers. It is a pure observer: it never
// gates or delays protocol progress, and on platforms without TCP_INFO
// support it reports zero samples instead of failing.
type TCPInfoCollector struct {
	mu    sync.Mutex
	conns map[net.Conn]tcpInfoEntry

	rtt         *prometheus.Desc
	cwnd        *prometheus.Desc
	retransmits *prometheus.Desc
}

type tcpInfoEntry struct {
	fd     int
	labels []string
}

// NewTCPInfoCollector builds a collector whose metrics carry the given
// variable label names (e.g. "remote_addr"); label values are supplied per
// connection via Add.
func NewTCPInfoCollector(prefix string, labels []string) *TCPInfoCollector {
	return &TCPInfoCollector{
		conns:       make(map[net.Conn]tcpInfoEntry),
		rtt:         prometheus.NewDesc(prefix+"_rtt_microseconds", "Smoothed round-trip time of the data connection.", labels, nil),
		cwnd:        prometheus.NewDesc(prefix+"_congestion_window_segments", "Congestion window of the data connection, in segments.", labels, nil),
		retransmits: prometheus.NewDesc(prefix+"_retransmits_total", "Retransmission timeouts observed on the data connection.", labels, nil),
	}
}

func (c *TCPInfoCollector) Describe(descs chan<- *prometheus.Desc) {
	descs <- c.rtt
	descs <- c.cwnd
	descs <- c.retransmits
}

func (c *TCPInfoCollector) Collect(metrics chan<- prometheus.Metric) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for conn, entry := range c.conns {
		sample, ok := readTCPInfo(entry.fd)
		if !ok {
			delete(c.conns, conn)
			continue
		}
		metrics <- prometheus.MustNewConstMetric(c.rtt, prometheus.GaugeValue, float64(sample.rttMicros), entry.labels...)
		metrics <- prometheus.MustNewConstMetric(c.cwnd, prometheus.GaugeValue, float64(sample.cwndSegments), entry.labels...)
		metrics <- prometheus.MustNewConstMetric(c.retransmits, prometheus.CounterValue, float64(sample.retransmits), entry.labels...)
	}
}

// Add registers a live data connection for sampling until Remove is
// called. Safe to call even when TCP_INFO is unavailable on this
// platform: Collect will simply find nothing to report for it.
func (c *TCPInfoCollector) Add(conn net.Conn, labels ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conns[conn] = tcpInfoEntry{fd: netfd.GetFdFromConn(conn), labels: labels}
}

// Remove stops sampling conn. Called unconditionally on every transfer
// exit path, success or failure.
func (c *TCPInfoCollector) Remove(conn net.Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.conns, conn)
}

type tcpInfoSample struct {
	rttMicros    uint32
	cwndSegments uint32
	retransmits  uint32
}
