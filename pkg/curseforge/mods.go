package curseforge

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
)

// ProjectPageURL is the canonical web page for a project id. CurseForge
// resolves it to the project's slug URL on its own.
func ProjectPageURL(projectID uint64) string {
	return "https://curseforge.com/projects/" + strconv.FormatUint(projectID, 10)
}

type getProjectResponse struct {
	Data Project `json:"data"`
}

type getFilesRequest struct {
	FileIDs []uint64 `json:"fileIds"`
}

type getFilesResponse struct {
	Data []File `json:"data"`
}

// GetProject fetches a project by id. ErrNotFound is returned when the API
// reports the project as absent; any other failure is an upstream error.
func (c *Client) GetProject(ctx context.Context, projectID uint64) (Project, error) {
	resp, err := c.do(ctx, http.MethodGet, "/v1/mods/"+strconv.FormatUint(projectID, 10), nil)
	if err != nil {
		return Project{}, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return Project{}, ErrNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return Project{}, statusError(resp)
	}

	subject := fmt.Sprintf("project %d", projectID)
	var payload getProjectResponse
	if err := decode(resp, subject, &payload); err != nil {
		return Project{}, err
	}
	if payload.Data.ID == 0 {
		return Project{}, missingField(resp, subject, "data.id")
	}
	if payload.Data.Links.WebsiteURL == "" {
		return Project{}, missingField(resp, subject, "data.links.websiteUrl")
	}
	return payload.Data, nil
}

// GetFiles batch-fetches files keyed by id. Unknown ids are simply absent from
// the result; the API answers malformed batches with 400, which is treated as
// an empty result as well.
func (c *Client) GetFiles(ctx context.Context, fileIDs []uint64) (map[uint64]File, error) {
	files, err := c.listFiles(ctx, fileIDs)
	if err != nil {
		return nil, err
	}
	result := make(map[uint64]File, len(files))
	for _, file := range files {
		if _, dup := result[file.ID]; dup {
			return nil, fmt.Errorf("%w: file %d returned more than once", ErrInconsistent, file.ID)
		}
		result[file.ID] = file
	}
	return result, nil
}

// GetFileInfo resolves a file and its owning project. ErrNotFound means the
// file does not exist. A file whose project cannot be found is reported as
// ErrInconsistent, never as ErrNotFound.
func (c *Client) GetFileInfo(ctx context.Context, fileID uint64) (Project, File, error) {
	files, err := c.listFiles(ctx, []uint64{fileID})
	if err != nil {
		return Project{}, File{}, err
	}
	switch len(files) {
	case 0:
		return Project{}, File{}, ErrNotFound
	case 1:
	default:
		return Project{}, File{}, fmt.Errorf("%w: expected 1 result file for %d, got %d", ErrInconsistent, fileID, len(files))
	}

	file := files[0]
	if file.ID != fileID {
		return Project{}, File{}, fmt.Errorf("%w: requested file %d, got file %d", ErrInconsistent, fileID, file.ID)
	}
	project, err := c.GetProject(ctx, file.ProjectID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Project{}, File{}, fmt.Errorf("%w: could not find project with id %d for file %d", ErrInconsistent, file.ProjectID, fileID)
		}
		return Project{}, File{}, fmt.Errorf("lookup project %d for file %d: %w", file.ProjectID, fileID, err)
	}
	return project, file, nil
}

func (c *Client) listFiles(ctx context.Context, fileIDs []uint64) ([]File, error) {
	ids := uniqueIDs(fileIDs)
	if len(ids) == 0 {
		return nil, nil
	}
	resp, err := c.do(ctx, http.MethodPost, "/v1/mods/files", getFilesRequest{FileIDs: ids})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusBadRequest, resp.StatusCode == http.StatusNotFound:
		return nil, nil
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, statusError(resp)
	}

	subject := fmt.Sprintf("files %v", ids)
	var payload getFilesResponse
	if err := decode(resp, subject, &payload); err != nil {
		return nil, err
	}
	for i, file := range payload.Data {
		if file.ID == 0 {
			return nil, missingField(resp, subject, fmt.Sprintf("data[%d].id", i))
		}
		if file.ProjectID == 0 {
			return nil, missingField(resp, subject, fmt.Sprintf("data[%d].modId", i))
		}
	}
	return payload.Data, nil
}

func uniqueIDs(ids []uint64) []uint64 {
	seen := make(map[uint64]struct{}, len(ids))
	out := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
