package reader

import (
	"context"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"path"
	"sort"
	"strings"

	"github.com/hirochachacha/go-smb2"
)

// SMBLocation is a parsed smb:// source URL.
type SMBLocation struct {
	Host    string
	Port    string
	Share   string
	Subpath string
}

// ParseSMBLocation parses an smb://host[:port]/share[/subpath] URL.
func ParseSMBLocation(raw string) (SMBLocation, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return SMBLocation{}, fmt.Errorf("parse smb url: %w", err)
	}
	if u.Scheme != "smb" {
		return SMBLocation{}, fmt.Errorf("smb url scheme %q is not smb", u.Scheme)
	}
	if u.Hostname() == "" {
		return SMBLocation{}, fmt.Errorf("smb url %s has no host", raw)
	}

	trimmed := strings.Trim(u.Path, "/")
	if trimmed == "" {
		return SMBLocation{}, fmt.Errorf("smb url %s has no share name", raw)
	}
	share, subpath, _ := strings.Cut(trimmed, "/")

	port := u.Port()
	if port == "" {
		port = "445"
	}

	return SMBLocation{
		Host:    u.Hostname(),
		Port:    port,
		Share:   share,
		Subpath: subpath,
	}, nil
}

// Prefix returns the canonical smb:// prefix used in migrated file paths.
// The port is omitted so ledger paths stay stable across dial options.
func (l SMBLocation) Prefix() string {
	prefix := "smb://" + l.Host + "/" + l.Share
	if l.Subpath != "" {
		prefix += "/" + l.Subpath
	}
	return prefix
}

// SMBReader reads files from an SMB share.
type SMBReader struct {
	location SMBLocation
	conn     net.Conn
	session  *smb2.Session
	share    *smb2.Share
}

// NewSMBReader dials the NAS and mounts the share named by location.
func NewSMBReader(ctx context.Context, location SMBLocation, user, password string) (*SMBReader, error) {
	dialer := net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(location.Host, location.Port))
	if err != nil {
		return nil, fmt.Errorf("dial smb host: %w", err)
	}

	smbDialer := &smb2.Dialer{
		Initiator: &smb2.NTLMInitiator{
			User:     user,
			Password: password,
		},
	}
	session, err := smbDialer.DialContext(ctx, conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("smb session: %w", err)
	}

	share, err := session.Mount(location.Share)
	if err != nil {
		session.Logoff()
		conn.Close()
		return nil, fmt.Errorf("mount smb share %s: %w", location.Share, err)
	}

	return &SMBReader{
		location: location,
		conn:     conn,
		session:  session,
		share:    share,
	}, nil
}

// ListFiles walks the share subtree and returns non-excluded regular
// files, sorted by path. Paths carry the smb://host/share prefix.
func (r *SMBReader) ListFiles(ctx context.Context) ([]FileInfo, error) {
	root := "."
	if r.location.Subpath != "" {
		root = r.location.Subpath
	}

	prefix := r.location.Prefix()
	var files []FileInfo
	err := walkFS(ctx, r.share.DirFS(root), func(rel string, entry fs.DirEntry) error {
		info, err := entry.Info()
		if err != nil {
			return err
		}
		files = append(files, FileInfo{
			Path:    prefix + "/" + rel,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list smb files: %w", err)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

// ReadFile returns the contents of a file by its smb:// path.
func (r *SMBReader) ReadFile(ctx context.Context, filePath string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rel, err := r.sharePath(filePath)
	if err != nil {
		return nil, err
	}
	data, err := r.share.ReadFile(rel)
	if err != nil {
		return nil, fmt.Errorf("read smb file: %w", err)
	}
	return data, nil
}

// Stat returns metadata for a file by its smb:// path.
func (r *SMBReader) Stat(ctx context.Context, filePath string) (FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return FileInfo{}, err
	}
	rel, err := r.sharePath(filePath)
	if err != nil {
		return FileInfo{}, err
	}
	info, err := r.share.Stat(rel)
	if err != nil {
		return FileInfo{}, fmt.Errorf("stat smb file: %w", err)
	}
	return FileInfo{Path: filePath, Size: info.Size(), ModTime: info.ModTime()}, nil
}

// Close unmounts the share and tears down the session.
func (r *SMBReader) Close() error {
	var firstErr error
	if r.share != nil {
		if err := r.share.Umount(); err != nil {
			firstErr = err
		}
	}
	if r.session != nil {
		if err := r.session.Logoff(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if r.conn != nil {
		if err := r.conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// sharePath converts an smb:// path back into a share-relative path.
func (r *SMBReader) sharePath(filePath string) (string, error) {
	sharePrefix := "smb://" + r.location.Host + "/" + r.location.Share
	rel, ok := strings.CutPrefix(filePath, sharePrefix)
	if !ok {
		return "", fmt.Errorf("path %s does not belong to share %s", filePath, sharePrefix)
	}
	rel = strings.TrimPrefix(rel, "/")
	if rel == "" {
		return "", fmt.Errorf("path %s names the share root, not a file", filePath)
	}
	return path.Clean(rel), nil
}
