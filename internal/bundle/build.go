// Package bundle packs a rendered client config and its certificate material
// into a reproducible tar.gz.
package bundle

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"path"
	"sort"
	"strings"
	"time"
)

var ErrEmptyName = errors.New("bundle: empty file name")

type File struct {
	Name string
	Data []byte
	Mode int64
}

// Build собирает tar.gz из файлов. Одинаковый вход даёт побайтно одинаковый
// архив. Возвращает архив и sha256 в hex.
func Build(files []File) ([]byte, string, error) {
	var buf bytes.Buffer

	gz := gzip.NewWriter(&buf)
	// детерминируем gzip-заголовок
	gz.Name = ""
	gz.Comment = ""
	gz.ModTime = time.Unix(0, 0)

	tw := tar.NewWriter(gz)

	sorted := make([]File, len(files))
	copy(sorted, files)
	for i := range sorted {
		// no leading slash, clean, unix slashes
		sorted[i].Name = path.Clean("/" + strings.ReplaceAll(sorted[i].Name, "\\", "/"))[1:]
		if sorted[i].Name == "" {
			return nil, "", ErrEmptyName
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	for _, f := range sorted {
		mode := f.Mode
		if mode == 0 {
			mode = 0644
		}
		hdr := &tar.Header{
			Name:    f.Name,
			Mode:    mode,
			Size:    int64(len(f.Data)),
			ModTime: time.Unix(0, 0), // фиксируем время в tar-заголовке
			Format:  tar.FormatUSTAR,
		}
		if err := tw.WriteHeader(hdr); err != nil {
			_ = tw.Close()
			_ = gz.Close()
			return nil, "", err
		}
		if _, err := tw.Write(f.Data); err != nil {
			_ = tw.Close()
			_ = gz.Close()
			return nil, "", err
		}
	}

	if err := tw.Close(); err != nil {
		return nil, "", err
	}
	if err := gz.Close(); err != nil {
		return nil, "", err
	}

	sum := sha256.Sum256(buf.Bytes())
	return buf.Bytes(), hex.EncodeToString(sum[:]), nil
}

// ClientFiles lays out the files of one client identity under openvpn/<name>/.
func ClientFiles(name, config string, caPEM, certPEM, keyPEM []byte) []File {
	dir := path.Join("openvpn", name)
	return []File{
		{Name: path.Join(dir, "client.conf"), Data: []byte(config)},
		{Name: path.Join(dir, "ca.crt"), Data: caPEM},
		{Name: path.Join(dir, "client.crt"), Data: certPEM},
		{Name: path.Join(dir, "client.key"), Data: keyPEM, Mode: 0600},
	}
}
