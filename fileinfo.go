package ftp

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FileInfo is the parsed, language-neutral view of one directory entry's
// metadata. It is constructed transiently by Stat and ExtendedList and is
// never retained or shared across calls.
type FileInfo struct {
	IsFile      bool
	IsDirectory bool
	IsSymlink   bool

	Size int64

	ModTime    time.Time
	ChangeTime time.Time
	AccessTime time.Time
	BirthTime  time.Time

	Mode int64
	UID  int64
	GID  int64

	FTPType   string
	FTPPerms  string
	Charset   string
	Lang      string
	MediaType string
}

// parseMLSTEntry parses one "fact1=val1;fact2=val2;...; SP filename" line
// per RFC 3659. The single leading space before the filename is mandatory
// and is stripped here, not trimmed from the name itself.
func parseMLSTEntry(line string) (string, *FileInfo, error) {
	sp := strings.IndexByte(line, ' ')
	if sp == -1 {
		return "", nil, &ParseError{Kind: "MLST entry", Input: line, Err: fmt.Errorf("missing name separator")}
	}

	info := &FileInfo{IsFile: true}
	name := line[sp+1:]

	for _, pair := range strings.Split(line[:sp], ";") {
		if pair == "" {
			continue
		}
		kv := strings.SplitN(pair, "=", 2)
		if len(kv) != 2 {
			continue
		}
		applyMLSTFact(info, strings.ToLower(kv[0]), kv[1])
	}

	return name, info, nil
}

func applyMLSTFact(info *FileInfo, key, val string) {
	switch key {
	case "type":
		info.FTPType = val
		switch strings.ToLower(val) {
		case "dir", "cdir", "pdir":
			info.IsFile, info.IsDirectory = false, true
		case "os.unix=symlink", "os.unix:symlink", "symlink":
			info.IsFile, info.IsSymlink = false, true
		}
	case "size":
		if n, err := strconv.ParseInt(val, 10, 64); err == nil {
			info.Size = n
		}
	case "modify":
		if t, err := parseMDTM(val); err == nil {
			info.ModTime = t
		}
	case "create":
		if t, err := parseMDTM(val); err == nil {
			info.BirthTime = t
		}
	case "perm":
		info.FTPPerms = val
	case "lang":
		info.Lang = val
	case "media-type":
		info.MediaType = val
	case "charset":
		info.Charset = val
	case "unix.mode":
		if n, err := strconv.ParseInt(val, 8, 64); err == nil {
			info.Mode = n
		}
	case "unix.uid":
		if n, err := strconv.ParseInt(val, 10, 64); err == nil {
			info.UID = n
		}
	case "unix.gid":
		if n, err := strconv.ParseInt(val, 10, 64); err == nil {
			info.GID = n
		}
	}
}

// encodeMLSTEntry is the inverse of parseMLSTEntry, used to verify the
// MLST round-trip law in tests.
func encodeMLSTEntry(name string, info *FileInfo) string {
	facts := []string{"type=" + mlstType(info), fmt.Sprintf("size=%d", info.Size)}

	if !info.ModTime.IsZero() {
		facts = append(facts, "modify="+formatMDTM(info.ModTime))
	}
	if !info.BirthTime.IsZero() {
		facts = append(facts, "create="+formatMDTM(info.BirthTime))
	}
	if info.FTPPerms != "" {
		facts = append(facts, "perm="+info.FTPPerms)
	}
	if info.Lang != "" {
		facts = append(facts, "lang="+info.Lang)
	}
	if info.MediaType != "" {
		facts = append(facts, "media-type="+info.MediaType)
	}
	if info.Charset != "" {
		facts = append(facts, "charset="+info.Charset)
	}
	if info.Mode != 0 {
		facts = append(facts, fmt.Sprintf("unix.mode=%04o", info.Mode))
	}
	if info.UID != 0 {
		facts = append(facts, fmt.Sprintf("unix.uid=%d", info.UID))
	}
	if info.GID != 0 {
		facts = append(facts, fmt.Sprintf("unix.gid=%d", info.GID))
	}

	return strings.Join(facts, ";") + "; " + name
}

func mlstType(info *FileInfo) string {
	switch {
	case info.FTPType != "":
		return info.FTPType
	case info.IsDirectory:
		return "dir"
	case info.IsSymlink:
		return "OS.unix=symlink"
	default:
		return "file"
	}
}
