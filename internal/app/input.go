package app

import (
	"encoding/csv"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"apkfetch/internal/types"
)

// ParseAppRef reads "id" or "id@version".
func ParseAppRef(value string) (types.DownloadRequest, error) {
	trimmed := strings.TrimSpace(value)
	id, version, _ := strings.Cut(trimmed, "@")
	id = strings.TrimSpace(id)
	if id == "" {
		return types.DownloadRequest{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("app identifier is empty in " + strings.TrimSpace(value))
	}
	return types.DownloadRequest{Identifier: id, Version: strings.TrimSpace(version)}, nil
}

// LoadAppList reads a CSV file of "id[,version]" rows. Blank rows and rows
// starting with # are skipped.
func LoadAppList(path string) ([]types.DownloadRequest, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("app list file not found: " + path).
			WithCause(err)
	}
	defer file.Close()
	return parseAppList(file)
}

func parseAppList(reader io.Reader) ([]types.DownloadRequest, error) {
	csvReader := csv.NewReader(reader)
	csvReader.Comment = '#'
	csvReader.FieldsPerRecord = -1
	csvReader.TrimLeadingSpace = true
	var requests []types.DownloadRequest
	for {
		record, err := csvReader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg("failed to parse app list").
				WithCause(err)
		}
		if len(record) == 0 || strings.TrimSpace(record[0]) == "" {
			continue
		}
		req := types.DownloadRequest{Identifier: strings.TrimSpace(record[0])}
		if len(record) > 1 {
			req.Version = strings.TrimSpace(record[1])
		}
		requests = append(requests, req)
	}
	return requests, nil
}

// CollectApps merges positional app refs with an optional list file,
// keeping input order.
func CollectApps(refs []string, listFile string) ([]types.DownloadRequest, error) {
	var requests []types.DownloadRequest
	for _, ref := range refs {
		req, err := ParseAppRef(ref)
		if err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}
	if strings.TrimSpace(listFile) != "" {
		listed, err := LoadAppList(listFile)
		if err != nil {
			return nil, err
		}
		requests = append(requests, listed...)
	}
	return requests, nil
}
