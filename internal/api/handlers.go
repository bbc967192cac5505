package api

import (
	"context"
	"errors"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sashabaranov/go-openai"

	"github.com/katakuxiko/luminarag/internal/logger"
	"github.com/katakuxiko/luminarag/internal/model"
	"github.com/katakuxiko/luminarag/internal/service"
)

// ModelLister reports the models served by the primary LLM endpoint.
type ModelLister interface {
	ListModels(ctx context.Context) ([]openai.Model, error)
}

// Handler holds the dependencies of the HTTP handlers.
type Handler struct {
	rag      *service.RAGService
	ingest   *service.Ingestor
	sessions *service.Sessions
	models   ModelLister
}

func NewHandler(rag *service.RAGService, ingest *service.Ingestor, sessions *service.Sessions, models ModelLister) *Handler {
	return &Handler{rag: rag, ingest: ingest, sessions: sessions, models: models}
}

type answerResponse struct {
	Answer    string           `json:"answer"`
	Path      model.AnswerPath `json:"path"`
	Sources   []model.Hit      `json:"sources"`
	ErrorKind model.ErrorKind  `json:"errorKind,omitempty"`
	Error     string           `json:"error,omitempty"`
}

type ingestResponse struct {
	FileName  string             `json:"fileName"`
	Status    model.IngestStatus `json:"status"`
	Chunks    int                `json:"chunks"`
	ErrorKind model.ErrorKind    `json:"errorKind,omitempty"`
	Error     string             `json:"error,omitempty"`
}

func toIngestResponse(r model.IngestResult) ingestResponse {
	out := ingestResponse{FileName: r.FileName, Status: r.Status, Chunks: r.Chunks, ErrorKind: r.Kind}
	if r.Err != nil {
		out.Error = r.Err.Error()
	}
	return out
}

func jsonError(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(fiber.Map{"error": msg})
}

// Health is a liveness check.
func (h *Handler) Health(c *fiber.Ctx) error {
	return c.SendString("ok")
}

func (h *Handler) ListModels(c *fiber.Ctx) error {
	models, err := h.models.ListModels(c.UserContext())
	if err != nil {
		return jsonError(c, fiber.StatusBadGateway, err.Error())
	}
	return c.JSON(models)
}

func (h *Handler) CreateSession(c *fiber.Ctx) error {
	s := h.sessions.Create()
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": s.ID, "createdAt": s.CreatedAt})
}

func (h *Handler) DeleteSession(c *fiber.Ctx) error {
	if err := h.sessions.Delete(c.Params("id")); err != nil {
		return jsonError(c, fiber.StatusNotFound, err.Error())
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// session resolves :id. On a miss it has already written the 404 and the
// caller just returns the error it got.
func (h *Handler) session(c *fiber.Ctx) (*service.Session, error) {
	s, err := h.sessions.Get(c.Params("id"))
	if err != nil {
		return nil, jsonError(c, fiber.StatusNotFound, err.Error())
	}
	return s, nil
}

// UploadDocuments indexes the PDFs sent in the multipart fields file and files.
func (h *Handler) UploadDocuments(c *fiber.Ctx) error {
	sess, err := h.session(c)
	if sess == nil {
		return err
	}

	form, err := c.MultipartForm()
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "multipart form with field file or files is required")
	}
	headers := append(form.File["file"], form.File["files"]...)
	if len(headers) == 0 {
		return jsonError(c, fiber.StatusBadRequest, "file is required (form field: file or files)")
	}

	log := logger.FromContext(c.UserContext())
	var (
		docs     []model.Document
		rejected []ingestResponse
	)
	for _, fh := range headers {
		name := filepath.Base(fh.Filename)
		if !strings.EqualFold(filepath.Ext(name), ".pdf") {
			rejected = append(rejected, ingestResponse{
				FileName:  name,
				Status:    model.StatusFailed,
				ErrorKind: model.KindValidation,
				Error:     "only .pdf files are accepted",
			})
			continue
		}
		data, err := readUpload(fh)
		if err != nil {
			log.Error("read upload", "file", name, "err", err)
			return jsonError(c, fiber.StatusInternalServerError, "failed to read uploaded file")
		}
		docs = append(docs, model.Document{Name: name, Data: data, UploadedAt: time.Now()})
	}

	results, err := h.ingest.IngestBatch(c.UserContext(), sess, docs)
	if err != nil {
		if errors.Is(err, model.ErrValidation) {
			return jsonError(c, fiber.StatusBadRequest, err.Error())
		}
		return jsonError(c, fiber.StatusInternalServerError, err.Error())
	}

	out := make([]ingestResponse, 0, len(results)+len(rejected))
	for _, r := range results {
		out = append(out, toIngestResponse(r))
	}
	out = append(out, rejected...)
	return c.JSON(fiber.Map{"session": sess.ID, "results": out})
}

func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// Ask answers a question from the indexed documents (retrieval + LLM).
func (h *Handler) Ask(c *fiber.Ctx) error {
	sess, err := h.session(c)
	if sess == nil {
		return err
	}

	var req model.AskRequest
	if err := c.BodyParser(&req); err != nil || strings.TrimSpace(req.Question) == "" {
		return jsonError(c, fiber.StatusBadRequest, `invalid request, expected JSON: {"question":"..."}`)
	}

	ans := h.rag.Ask(c.UserContext(), sess, req.Question)
	resp := answerResponse{Answer: ans.Text, Path: ans.Path, Sources: ans.Sources, ErrorKind: ans.Kind}
	if resp.Sources == nil {
		resp.Sources = []model.Hit{}
	}
	if ans.Err != nil {
		resp.Error = ans.Err.Error()
	}
	return c.JSON(resp)
}

func (h *Handler) History(c *fiber.Ctx) error {
	sess, err := h.session(c)
	if sess == nil {
		return err
	}
	return c.JSON(fiber.Map{"id": sess.ID, "history": sess.History(), "files": sess.Files()})
}

func (h *Handler) Reset(c *fiber.Ctx) error {
	sess, err := h.session(c)
	if sess == nil {
		return err
	}
	n, err := h.ingest.Reset(c.UserContext(), sess)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, err.Error())
	}
	return c.JSON(fiber.Map{"id": sess.ID, "deleted": n})
}
