package ftp

import (
	"net"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestTCPInfoCollector_DescribeAndCollect(t *testing.T) {
	t.Parallel()
	collector := NewTCPInfoCollector("ftp_data", []string{"remote_addr"})

	descs := make(chan *prometheus.Desc, 3)
	collector.Describe(descs)
	close(descs)
	var n int
	for range descs {
		n++
	}
	if n != 3 {
		t.Fatalf("expected 3 metric descriptors, got %d", n)
	}

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()
	accepted := make(chan net.Conn, 1)
	go func() {
		conn, _ := l.Accept()
		accepted <- conn
	}()
	client, err := net.Dial("tcp", l.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer client.Close()
	server := <-accepted
	if server != nil {
		defer server.Close()
	}

	collector.Add(client, "127.0.0.1:21")

	metrics := make(chan prometheus.Metric, 8)
	go func() {
		collector.Collect(metrics)
		close(metrics)
	}()
	for range metrics {
		// Drain whatever the platform-specific sampler produced; on
		// platforms without TCP_INFO support this is simply empty.
	}

	collector.Remove(client)

	if err := prometheus.NewPedanticRegistry().Register(collector); err != nil {
		t.Fatalf("collector must satisfy prometheus.Collector: %v", err)
	}
}
