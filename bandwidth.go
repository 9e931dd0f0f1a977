package ftp

import (
	"context"
	"io"

	"golang.org/x/time/rate"
)

// newLimiter builds a token-bucket limiter capped at bytesPerSecond, with a
// burst window of one second's worth of data. A zero or negative rate
// disables shaping entirely.
func newLimiter(bytesPerSecond int64) *rate.Limiter {
	if bytesPerSecond <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(bytesPerSecond), int(bytesPerSecond))
}

// shapedReader wraps r so that reads block until the session's bandwidth
// limiter has tokens for the bytes about to be returned. A nil limiter
// makes this a pass-through.
type shapedReader struct {
	r       io.Reader
	limiter *rate.Limiter
}

func shapeReader(r io.Reader, limiter *rate.Limiter) io.Reader {
	if limiter == nil {
		return r
	}
	return &shapedReader{r: r, limiter: limiter}
}

func (s *shapedReader) Read(p []byte) (int, error) {
	if burst := s.limiter.Burst(); len(p) > burst {
		p = p[:burst]
	}
	n, err := s.r.Read(p)
	if n > 0 {
		if waitErr := s.limiter.WaitN(context.Background(), n); waitErr != nil {
			return n, waitErr
		}
	}
	return n, err
}

// shapedWriter wraps w so that writes block until the limiter has tokens
// for the bytes about to be written. A nil limiter makes this a
// pass-through.
type shapedWriter struct {
	w       io.Writer
	limiter *rate.Limiter
}

func shapeWriter(w io.Writer, limiter *rate.Limiter) io.Writer {
	if limiter == nil {
		return w
	}
	return &shapedWriter{w: w, limiter: limiter}
}

func (s *shapedWriter) Write(p []byte) (int, error) {
	burst := s.limiter.Burst()
	var written int
	for written < len(p) {
		chunk := len(p) - written
		if chunk > burst {
			chunk = burst
		}
		if err := s.limiter.WaitN(context.Background(), chunk); err != nil {
			return written, err
		}
		n, err := s.w.Write(p[written : written+chunk])
		written += n
		if err != nil {
			return written, err
		}
	}
	return written, nil
}
