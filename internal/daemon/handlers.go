package daemon

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"shelfmark/internal/api"
	"shelfmark/internal/confirm"
	"shelfmark/internal/extraction"
	"shelfmark/internal/queue"
	"shelfmark/internal/services"
)

// maxBatchItems caps the candidates, year lookups, or confirmations a single
// JSON request may carry.
const maxBatchItems = 200

type ingestRequest struct {
	Candidates []queue.Candidate `json:"candidates"`
	InputType  string            `json:"input_type"`
	SourceNote string            `json:"source_note"`
}

type inputRequest struct {
	Type  string `json:"type"`
	Text  string `json:"text"`
	Image string `json:"image"`
}

type yearsRequest struct {
	Items []api.ItemRef `json:"items"`
}

type yearsResponse struct {
	Years []*int `json:"years"`
}

type confirmRequest struct {
	Items []confirm.Item `json:"items"`
}

type pendingResponse struct {
	Items []api.PendingView `json:"items"`
}

type editRequest struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

type discardResponse struct {
	Row *queue.PendingCandidate `json:"row"`
}

type healthResponse struct {
	Status  string `json:"status"`
	Catalog bool   `json:"catalog"`
	Detail  string `json:"detail,omitempty"`
}

func (s *apiServer) handleHealth(c *gin.Context) {
	if err := s.svc.Ready(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, healthResponse{
			Status: "not_ready",
			Detail: services.PublicMessage(err, s.debug),
		})
		return
	}
	c.JSON(http.StatusOK, healthResponse{Status: "ok", Catalog: true})
}

func (s *apiServer) handleIngest(c *gin.Context) {
	var req ingestRequest
	if !s.bindJSON(c, "ingest", &req) || !s.checkBatch(c, "ingest", "candidates", len(req.Candidates)) {
		return
	}
	inputType := queue.InputText
	if req.InputType != "" {
		parsed, ok := queue.ParseInputType(req.InputType)
		if !ok {
			s.badRequest(c, "ingest", "input_type must be text, audio, or image")
			return
		}
		inputType = parsed
	}
	sourceNote := strings.TrimSpace(req.SourceNote)
	if sourceNote == "" {
		sourceNote = string(inputType)
	}
	res, err := s.svc.Ingest(c.Request.Context(), userID(c), req.Candidates, queue.Meta{
		InputType:  inputType,
		SourceNote: sourceNote,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *apiServer) handleIngestInput(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxUpload)
	var (
		req extraction.Request
		err error
	)
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		req, err = s.multipartInput(c)
	} else {
		req, err = jsonInput(c)
	}
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.badRequest(c, "ingest_input", "upload exceeds the size limit")
			return
		}
		s.badRequest(c, "ingest_input", err.Error())
		return
	}
	res, err := s.svc.IngestInput(c.Request.Context(), userID(c), req)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func jsonInput(c *gin.Context) (extraction.Request, error) {
	var body inputRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return extraction.Request{}, err
		}
		return extraction.Request{}, errors.New("invalid json body")
	}
	inputType, ok := queue.ParseInputType(defaultString(body.Type, string(queue.InputText)))
	if !ok {
		return extraction.Request{}, errors.New("type must be text, audio, or image")
	}
	switch inputType {
	case queue.InputText:
		return extraction.Request{Type: inputType, Text: body.Text}, nil
	case queue.InputImage:
		img, err := extraction.ParseDataURL(body.Image)
		if err != nil {
			return extraction.Request{}, err
		}
		return extraction.Request{Type: inputType, Image: &img}, nil
	default:
		return extraction.Request{}, errors.New("audio must be uploaded as multipart form data")
	}
}

func (s *apiServer) multipartInput(c *gin.Context) (extraction.Request, error) {
	inputType, ok := queue.ParseInputType(strings.TrimSpace(c.PostForm("type")))
	if !ok {
		return extraction.Request{}, errors.New("type must be text, audio, or image")
	}
	if inputType == queue.InputText {
		return extraction.Request{Type: inputType, Text: c.PostForm("text")}, nil
	}
	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return extraction.Request{}, err
		}
		return extraction.Request{}, errors.New("file is required")
	}
	data, err := readUpload(header)
	if err != nil {
		return extraction.Request{}, err
	}
	if inputType == queue.InputAudio {
		return extraction.Request{Type: inputType, Audio: &extraction.Audio{Filename: header.Filename, Data: data}}, nil
	}
	img := extraction.Image{Data: data}
	if ct := strings.ToLower(header.Header.Get("Content-Type")); strings.HasPrefix(ct, "image/") {
		img.MIMEType = ct
	}
	return extraction.Request{Type: inputType, Image: &img}, nil
}

func readUpload(header *multipart.FileHeader) ([]byte, error) {
	file, err := header.Open()
	if err != nil {
		return nil, errors.New("could not read uploaded file")
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, errors.New("could not read uploaded file")
	}
	return data, nil
}

func (s *apiServer) handleYears(c *gin.Context) {
	var req yearsRequest
	if !s.bindJSON(c, "years", &req) || !s.checkBatch(c, "years", "items", len(req.Items)) {
		return
	}
	c.JSON(http.StatusOK, yearsResponse{Years: s.svc.LookupYears(c.Request.Context(), req.Items)})
}

func (s *apiServer) handleConfirm(c *gin.Context) {
	var req confirmRequest
	if !s.bindJSON(c, "confirm", &req) || !s.checkBatch(c, "confirm", "items", len(req.Items)) {
		return
	}
	if len(req.Items) == 0 {
		s.badRequest(c, "confirm", "items must not be empty")
		return
	}
	res, err := s.svc.Confirm(c.Request.Context(), userID(c), req.Items)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *apiServer) handleConfirmAll(c *gin.Context) {
	res, err := s.svc.ConfirmAll(c.Request.Context(), userID(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *apiServer) handleListPending(c *gin.Context) {
	views, err := s.svc.ListPending(c.Request.Context(), userID(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, pendingResponse{Items: views})
}

func (s *apiServer) handleUpdatePending(c *gin.Context) {
	rowID, ok := s.rowID(c, "update_pending")
	if !ok {
		return
	}
	var req editRequest
	if !s.bindJSON(c, "update_pending", &req) {
		return
	}
	field, ok := queue.ParseField(req.Field)
	if !ok {
		s.badRequest(c, "update_pending", "field must be title, author, year, or isbn")
		return
	}
	res, err := s.svc.UpdatePendingField(c.Request.Context(), userID(c), rowID, field, req.Value)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *apiServer) handleDiscard(c *gin.Context) {
	rowID, ok := s.rowID(c, "discard")
	if !ok {
		return
	}
	row, err := s.svc.Discard(c.Request.Context(), userID(c), rowID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, discardResponse{Row: row})
}

func (s *apiServer) rowID(c *gin.Context, op string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		s.badRequest(c, op, "invalid pending row id")
		return 0, false
	}
	c.Request = c.Request.WithContext(services.WithRowID(c.Request.Context(), id))
	return id, true
}

func defaultString(value, fallback string) string {
	if value = strings.TrimSpace(value); value != "" {
		return value
	}
	return fallback
}

// bindJSON decodes a JSON body no larger than the upload limit into dst. On
// failure it writes a 400 and returns false.
func (s *apiServer) bindJSON(c *gin.Context, op string, dst any) bool {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxUpload)
	err := c.ShouldBindJSON(dst)
	if err == nil {
		return true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		s.badRequest(c, op, "request body exceeds the size limit")
		return false
	}
	s.badRequest(c, op, "invalid json body")
	return false
}

func (s *apiServer) checkBatch(c *gin.Context, op, field string, n int) bool {
	if n <= maxBatchItems {
		return true
	}
	s.badRequest(c, op, field+" must not exceed "+strconv.Itoa(maxBatchItems)+" entries")
	return false
}
