package figma

import (
	"context"

	"figmagen/internal/types"
)

// DocumentSource supplies the document tree and the image manifests for one
// file.
type DocumentSource interface {
	File(ctx context.Context) (*File, error)
	// ImageFills maps image-fill refs to download URLs. Null URLs are dropped.
	ImageFills(ctx context.Context) (map[string]string, error)
	// RenderImages asks the API to render the given node ids and maps each id
	// to a download URL. Ids the API could not render are dropped.
	RenderImages(ctx context.Context, ids []string, format string) (map[string]string, error)
	Nodes(ctx context.Context, ids []string) (map[string]*types.Node, error)
}

// File is the body of GET /v1/files/:key.
type File struct {
	Name         string      `json:"name"`
	LastModified string      `json:"lastModified,omitempty"`
	Version      string      `json:"version,omitempty"`
	Document     *types.Node `json:"document"`
}

// Canvas returns the first page of the document.
func (f *File) Canvas() (*types.Node, error) {
	if f == nil || f.Document == nil || len(f.Document.Children) == 0 || f.Document.Children[0] == nil {
		return nil, ErrNoCanvas
	}
	return f.Document.Children[0], nil
}

type imageFillsResponse struct {
	Error  bool `json:"error"`
	Status int  `json:"status"`
	Meta   struct {
		Images map[string]*string `json:"images"`
	} `json:"meta"`
}

type renderResponse struct {
	Err    *string            `json:"err"`
	Images map[string]*string `json:"images"`
}

type nodesResponse struct {
	Nodes map[string]*struct {
		Document *types.Node `json:"document"`
	} `json:"nodes"`
}

func nonNullURLs(in map[string]*string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		if v == nil || *v == "" {
			continue
		}
		out[k] = *v
	}
	return out
}
