package ftp

import (
	"fmt"
	"io"
)

// Download retrieves path in full via RETR and returns its bytes. For
// large files prefer DownloadStream, which never buffers the whole
// transfer in memory.
func (c *Client) Download(path string) ([]byte, error) {
	r, err := c.DownloadStream(path)
	if err != nil {
		return nil, err
	}
	data, readErr := io.ReadAll(r)
	closeErr := r.Close()
	if readErr != nil {
		return nil, capture(readErr, closeErr)
	}
	if closeErr != nil {
		return nil, closeErr
	}
	return data, nil
}

// DownloadStream retrieves path via RETR and returns a reader over its
// bytes. The coordinator lock is held for the lifetime of the returned
// reader and is only released when Close is called, which also reads the
// trailing 226 reply; callers must always Close it, even after a partial
// read or an error.
func (c *Client) DownloadStream(path string) (io.ReadCloser, error) {
	return c.DownloadStreamWithProgress(path, nil)
}

// DownloadStreamWithProgress is DownloadStream plus a callback invoked after
// every Read with the cumulative byte count, driven by a ProgressReader
// wrapped around the negotiated data connection. onProgress may be nil, in
// which case this is identical to DownloadStream.
func (c *Client) DownloadStreamWithProgress(path string, onProgress func(bytesTransferred int64)) (io.ReadCloser, error) {
	conn, err := c.commandWithData("RETR", "RETR", pathArgs(c, path))
	if err != nil {
		return nil, err
	}
	var r io.Reader = shapeReader(conn, newLimiter(c.bandwidthLimit))
	if onProgress != nil {
		r = &ProgressReader{Reader: r, Callback: onProgress}
	}
	return &downloadStream{c: c, r: r}, nil
}

type downloadStream struct {
	c      *Client
	r      io.Reader
	closed bool
}

func (d *downloadStream) Read(p []byte) (int, error) {
	return d.r.Read(p)
}

func (d *downloadStream) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	return d.c.finishDataConn()
}

// Upload stores data at path in full via STOR. For large payloads prefer
// UploadStream, which returns a writer so the payload can be written in
// pieces rather than passed as one slice.
func (c *Client) Upload(path string, data []byte) error {
	w, err := c.UploadStream(path, int64(len(data)))
	if err != nil {
		return err
	}
	_, writeErr := w.Write(data)
	closeErr := w.Close()
	if writeErr != nil {
		return capture(writeErr, closeErr)
	}
	return closeErr
}

// UploadStream stores path via STOR and returns a writer accepting its
// bytes. When size is non-negative, ALLO is sent first to pre-allocate
// storage on servers that support it; per §4.7 a successful ALLO is either
// 200 or 202 ("allocate not needed"), both treated as success. The
// coordinator lock is held for the lifetime of the returned writer and is
// only released when Close is called, which also reads the trailing 226
// reply; callers must always Close it, even after a failed write.
func (c *Client) UploadStream(path string, size int64) (io.WriteCloser, error) {
	return c.UploadStreamWithProgress(path, size, nil)
}

// UploadStreamWithProgress is UploadStream plus a callback invoked after
// every Write with the cumulative byte count, driven by a ProgressWriter
// wrapped around the negotiated data connection. onProgress may be nil, in
// which case this is identical to UploadStream.
func (c *Client) UploadStreamWithProgress(path string, size int64, onProgress func(bytesTransferred int64)) (io.WriteCloser, error) {
	if err := c.acquireReady("STOR"); err != nil {
		return nil, err
	}
	if size >= 0 {
		reply, err := c.sendLocked("ALLO", fmt.Sprintf("%d", size))
		if err != nil {
			c.mu.Unlock()
			return nil, err
		}
		if reply.Code != 200 && reply.Code != 202 {
			c.mu.Unlock()
			return nil, &UnexpectedStatusError{Expected: 200, Got: reply.Code, Message: reply.Message}
		}
	}
	conn, err := c.openDataConnLocked("STOR", pathArgs(c, path))
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}
	var w io.Writer = shapeWriter(conn, newLimiter(c.bandwidthLimit))
	if onProgress != nil {
		w = &ProgressWriter{Writer: w, Callback: onProgress}
	}
	return &uploadStream{c: c, w: w}, nil
}

type uploadStream struct {
	c      *Client
	w      io.Writer
	closed bool
}

func (u *uploadStream) Write(p []byte) (int, error) {
	return u.w.Write(p)
}

func (u *uploadStream) Close() error {
	if u.closed {
		return nil
	}
	u.closed = true
	return u.c.finishDataConn()
}
