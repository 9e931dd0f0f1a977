package ftp

import "io"

// ProgressReader wraps the data-socket reader returned for a download and
// reports cumulative bytes transferred after every Read. DownloadStream
// wraps one around the negotiated connection whenever a caller passes a
// non-nil callback to DownloadStreamWithProgress; it is not meant to be
// constructed standalone against an arbitrary reader.
type ProgressReader struct {
	Reader   io.Reader
	Callback func(bytesTransferred int64)

	total int64
}

func (pr *ProgressReader) Read(p []byte) (int, error) {
	n, err := pr.Reader.Read(p)
	pr.total += int64(n)
	if pr.Callback != nil && n > 0 {
		pr.Callback(pr.total)
	}
	return n, err
}

// ProgressWriter is ProgressReader's counterpart for an upload's data-socket
// writer, wrapped by UploadStreamWithProgress.
type ProgressWriter struct {
	Writer   io.Writer
	Callback func(bytesTransferred int64)

	total int64
}

func (pw *ProgressWriter) Write(p []byte) (int, error) {
	n, err := pw.Writer.Write(p)
	pw.total += int64(n)
	if pw.Callback != nil && n > 0 {
		pw.Callback(pw.total)
	}
	return n, err
}
