package endpoints

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jackzampolin/etho/internal/analysis"
	"github.com/jackzampolin/etho/internal/api"
	"github.com/jackzampolin/etho/internal/svcctx"
)

// allowedVideoTypes is the upload content-type whitelist.
var allowedVideoTypes = map[string]bool{
	"video/mp4":        true,
	"video/quicktime":  true,
	"video/x-msvideo":  true,
	"video/webm":       true,
	"video/x-matroska": true,
}

// AnalyzeResponse wraps a successful analysis document.
type AnalyzeResponse struct {
	Success bool            `json:"success"`
	Data    analysis.Result `json:"data"`
}

// VideoUploadEndpoint handles POST /api/video/upload with a multipart video file.
type VideoUploadEndpoint struct {
	// MaxUploadBytes caps the accepted file size. Zero means 100MB.
	MaxUploadBytes int64
}

var _ api.Endpoint = (*VideoUploadEndpoint)(nil)

func (e *VideoUploadEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/video/upload", e.handler
}

func (e *VideoUploadEndpoint) RequiresInit() bool { return true }

func (e *VideoUploadEndpoint) maxBytes() int64 {
	if e.MaxUploadBytes > 0 {
		return e.MaxUploadBytes
	}
	return 100 << 20
}

// handler godoc
//
//	@Summary		Analyze a pet video
//	@Description	Upload a video for ethological behavior analysis
//	@Tags			video
//	@Accept			mpfd
//	@Produce		json
//	@Param			file		formData	file	true	"Video file (mp4, mov, avi, webm, mkv)"
//	@Param			mode		query		string	false	"Analysis mode (default etho)"
//	@Param			use_cache	query		bool	false	"Accepted for compatibility; no effect"
//	@Success		200	{object}	AnalyzeResponse
//	@Failure		400	{object}	ErrorResponse
//	@Failure		413	{object}	ErrorResponse
//	@Failure		500	{object}	ErrorResponse
//	@Failure		503	{object}	ErrorResponse
//	@Router			/api/video/upload [post]
func (e *VideoUploadEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	if mode := r.URL.Query().Get("mode"); mode != "" && mode != "etho" {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown analysis mode %q", mode))
		return
	}
	useCache := r.URL.Query().Get("use_cache") == "true"

	r.Body = http.MaxBytesReader(w, r.Body, e.maxBytes())

	const maxMemory = 32 << 20
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("file exceeds %dMB limit", e.maxBytes()>>20))
			return
		}
		writeError(w, http.StatusBadRequest, fmt.Sprintf("failed to parse form: %v", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	src, hdr, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "no video file uploaded under field \"file\"")
		return
	}
	defer src.Close()

	contentType := hdr.Header.Get("Content-Type")
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		contentType = mt
	}
	if !allowedVideoTypes[contentType] {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("unsupported content type %q; expected a video upload", contentType))
		return
	}
	if hdr.Size > e.maxBytes() {
		writeError(w, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("file exceeds %dMB limit", e.maxBytes()>>20))
		return
	}

	analyzer := svcctx.AnalyzerFrom(r.Context())
	if analyzer == nil {
		writeError(w, http.StatusServiceUnavailable, "analyzer not initialized")
		return
	}
	logger := svcctx.LoggerFrom(r.Context())

	// Spool to a temp file so the remote upload reads from disk, not from a
	// half-consumed multipart stream.
	tempPath := filepath.Join(os.TempDir(), "etho-upload-"+uuid.New().String()+filepath.Ext(hdr.Filename))
	dst, err := os.Create(tempPath)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to spool upload: %v", err))
		return
	}
	defer os.Remove(tempPath)

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to save upload: %v", err))
		return
	}
	if _, err := dst.Seek(0, io.SeekStart); err != nil {
		dst.Close()
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to rewind upload: %v", err))
		return
	}
	defer dst.Close()

	if logger != nil {
		logger.Info("analyzing uploaded video",
			"filename", hdr.Filename, "size", hdr.Size, "content_type", contentType)
	}

	result := analyzer.Analyze(r.Context(), dst, contentType, useCache)

	if result.IsError() {
		switch result.ErrorType() {
		case analysis.ErrTypeNoPet:
			writeJSON(w, http.StatusOK, result)
		default:
			writeJSON(w, http.StatusInternalServerError, result)
		}
		return
	}

	writeJSON(w, http.StatusOK, AnalyzeResponse{Success: true, Data: result})
}

func (e *VideoUploadEndpoint) Command(getServerURL func() string) *cobra.Command {
	var mode string
	cmd := &cobra.Command{
		Use:   "analyze <video-file>",
		Short: "Upload a video and print the analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			contentType := mime.TypeByExtension(filepath.Ext(args[0]))
			if contentType == "" {
				contentType = "video/mp4"
			}

			client := api.NewClient(getServerURL())
			path := "/api/video/upload"
			if mode != "" {
				path += "?mode=" + mode
			}
			var resp map[string]any
			if err := client.PostFile(cmd.Context(), path, args[0], contentType, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVar(&mode, "mode", "", "analysis mode")
	return cmd
}
