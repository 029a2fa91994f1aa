// Package update fetches masterlists over HTTP and tracks the revision
// of the local copy in a sidecar file next to it.
package update

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/raehik/loot-api/pkg/metadata"
)

// maxListSize caps how large a fetched masterlist may be.
const maxListSize = 64 << 20

// Client downloads masterlists. A download only replaces the local copy
// after the body has parsed as a metadata list, so a bad fetch never
// clobbers a good file.
type Client struct {
	http *http.Client
	log  zerolog.Logger
}

// New returns a Client that logs through the given logger.
func New(log zerolog.Logger) *Client {
	return &Client{
		http: &http.Client{Timeout: 30 * time.Second},
		log:  log.With().Str("component", "update").Logger(),
	}
}

// revisionFile is the sidecar written next to a fetched masterlist. The
// SHA-256 of the fetched body doubles as the revision ID and lets us
// detect local edits.
type revisionFile struct {
	URL     string    `yaml:"url"`
	Ref     string    `yaml:"ref,omitempty"`
	ETag    string    `yaml:"etag,omitempty"`
	SHA256  string    `yaml:"sha256"`
	Fetched time.Time `yaml:"fetched"`
}

func sidecarPath(path string) string {
	return path + ".revision.yaml"
}

// Update fetches remoteURL and replaces the file at path when the
// remote content differs from what was last fetched. The ref, when
// non-empty, is passed to the server as a query parameter and recorded.
// Returns true when the local file changed.
func (c *Client) Update(ctx context.Context, path, remoteURL, remoteRef string) (bool, error) {
	prev, err := readSidecar(sidecarPath(path))
	if err != nil && !errors.Is(err, metadata.ErrNotFound) {
		return false, err
	}

	target, err := refURL(remoteURL, remoteRef)
	if err != nil {
		return false, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return false, fmt.Errorf("%w: %v", metadata.ErrInvalidArgument, err)
	}
	// Only reuse the validator when it was issued for the same request.
	if prev.ETag != "" && prev.URL == remoteURL && prev.Ref == remoteRef {
		req.Header.Set("If-None-Match", prev.ETag)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("%w: fetching %s: %v", metadata.ErrFileAccess, remoteURL, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotModified:
		c.log.Debug().Str("url", remoteURL).Msg("masterlist not modified")
		return false, nil
	case resp.StatusCode != http.StatusOK:
		return false, fmt.Errorf("%w: fetching %s: unexpected status %s", metadata.ErrFileAccess, remoteURL, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxListSize+1))
	if err != nil {
		return false, fmt.Errorf("%w: fetching %s: %v", metadata.ErrFileAccess, remoteURL, err)
	}
	if len(body) > maxListSize {
		return false, fmt.Errorf("%w: fetching %s: response exceeds %d bytes", metadata.ErrFileAccess, remoteURL, maxListSize)
	}

	sum := sha256.Sum256(body)
	digest := hex.EncodeToString(sum[:])
	etag := resp.Header.Get("ETag")

	if digest == prev.SHA256 && fileExists(path) {
		// Same content under a new validator. Remember the validator so
		// the next fetch can short-circuit, but the revision stands.
		if etag != "" && etag != prev.ETag {
			prev.ETag = etag
			if err := writeSidecar(sidecarPath(path), prev); err != nil {
				return false, err
			}
		}
		c.log.Debug().Str("url", remoteURL).Msg("masterlist content unchanged")
		return false, nil
	}

	if err := c.stage(path, body); err != nil {
		return false, err
	}

	rev := revisionFile{
		URL:     remoteURL,
		Ref:     remoteRef,
		ETag:    etag,
		SHA256:  digest,
		Fetched: time.Now().UTC(),
	}
	if err := writeSidecar(sidecarPath(path), rev); err != nil {
		return false, err
	}

	c.log.Info().Str("url", remoteURL).Str("revision", digest[:7]).Msg("masterlist updated")
	return true, nil
}

// Revision reports the recorded revision of the file at path. Modified
// is set when the file's current content no longer matches the recorded
// hash. When short is set the ID is truncated to seven hex characters.
func (c *Client) Revision(path string, short bool) (metadata.RevisionInfo, error) {
	rev, err := readSidecar(sidecarPath(path))
	if err != nil {
		return metadata.RevisionInfo{}, err
	}
	current, err := fileDigest(path)
	if err != nil {
		return metadata.RevisionInfo{}, err
	}

	id := rev.SHA256
	if short && len(id) > 7 {
		id = id[:7]
	}
	return metadata.RevisionInfo{
		ID:       id,
		Date:     rev.Fetched.UTC().Format("2006-01-02"),
		Modified: current != rev.SHA256,
	}, nil
}

// IsLatest reports whether the file at path matches what the remote
// currently serves for ref. A recorded ref other than the requested one
// is never latest.
func (c *Client) IsLatest(ctx context.Context, path, ref string) (bool, error) {
	rev, err := readSidecar(sidecarPath(path))
	if err != nil {
		return false, err
	}
	if rev.Ref != ref {
		return false, nil
	}

	target, err := refURL(rev.URL, rev.Ref)
	if err != nil {
		return false, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return false, fmt.Errorf("%w: %v", metadata.ErrInvalidArgument, err)
	}
	if rev.ETag != "" {
		req.Header.Set("If-None-Match", rev.ETag)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("%w: fetching %s: %v", metadata.ErrFileAccess, rev.URL, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotModified:
		return true, nil
	case resp.StatusCode != http.StatusOK:
		return false, fmt.Errorf("%w: fetching %s: unexpected status %s", metadata.ErrFileAccess, rev.URL, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxListSize+1))
	if err != nil {
		return false, fmt.Errorf("%w: fetching %s: %v", metadata.ErrFileAccess, rev.URL, err)
	}
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:]) == rev.SHA256, nil
}

// stage writes body to a temporary file beside path, checks that it
// parses as a metadata list, and renames it into place.
func (c *Client) stage(path string, body []byte) error {
	dir := filepath.Dir(path)
	tmp := filepath.Join(dir, fmt.Sprintf(".%s.%s.tmp", filepath.Base(path), uuid.Must(uuid.NewV7()).String()))
	if err := os.WriteFile(tmp, body, 0o644); err != nil {
		return fmt.Errorf("%w: staging %s: %v", metadata.ErrFileAccess, path, err)
	}

	if err := metadata.NewList().Load(tmp); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("fetched masterlist is invalid: %w", err)
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("%w: replacing %s: %v", metadata.ErrFileAccess, path, err)
	}
	return nil
}

func refURL(remoteURL, ref string) (string, error) {
	if ref == "" {
		return remoteURL, nil
	}
	u, err := url.Parse(remoteURL)
	if err != nil {
		return "", fmt.Errorf("%w: url %q: %v", metadata.ErrInvalidArgument, remoteURL, err)
	}
	q := u.Query()
	q.Set("ref", ref)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func readSidecar(path string) (revisionFile, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return revisionFile{}, fmt.Errorf("%w: no revision recorded (%s missing)", metadata.ErrNotFound, path)
	}
	if err != nil {
		return revisionFile{}, fmt.Errorf("%w: reading %s: %v", metadata.ErrFileAccess, path, err)
	}
	var rev revisionFile
	if err := yaml.Unmarshal(data, &rev); err != nil {
		return revisionFile{}, fmt.Errorf("%w: parsing %s: %v", metadata.ErrMalformed, path, err)
	}
	return rev, nil
}

func writeSidecar(path string, rev revisionFile) error {
	data, err := yaml.Marshal(rev)
	if err != nil {
		return fmt.Errorf("%w: encoding %s: %v", metadata.ErrFileAccess, path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("%w: writing %s: %v", metadata.ErrFileAccess, path, err)
	}
	return nil
}

func fileDigest(path string) (string, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%w: %s", metadata.ErrNotFound, path)
	}
	if err != nil {
		return "", fmt.Errorf("%w: opening %s: %v", metadata.ErrFileAccess, path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("%w: reading %s: %v", metadata.ErrFileAccess, path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
