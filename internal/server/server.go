package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/snapsell/photolister/internal/pipeline"
	"github.com/snapsell/photolister/internal/storage"
)

// ListingCreator runs the listing-creation pipeline for one image.
// Implemented by *pipeline.Orchestrator; an interface so handlers can be
// tested with a stub.
type ListingCreator interface {
	Run(ctx context.Context, img pipeline.RawImage, overrides *pipeline.Overrides) (*pipeline.Result, error)
}

// Server is the HTTP entry point used by the capture front-end. It holds no
// per-run state; concurrent requests run independent pipeline invocations.
type Server struct {
	creator ListingCreator
	store   storage.Store
}

func New(creator ListingCreator, store storage.Store) *Server {
	return &Server{creator: creator, store: store}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", s.handleHealth)
	r.POST("/listings", s.handleCreateListing)
	r.GET("/listings", s.handleListRuns)

	return r
}

type errorResponse struct {
	Error string `json:"error"`
}

type failureResponse struct {
	Stage         string `json:"stage"`
	Error         string `json:"error"`
	MediaUploaded bool   `json:"media_uploaded"`
	ItemCreated   bool   `json:"item_created"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleCreateListing(c *gin.Context) {
	file, err := c.FormFile("image")
	if err != nil {
		file, err = c.FormFile("file")
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "image file is required (field \"image\")"})
		return
	}

	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "failed to open uploaded file: " + err.Error()})
		return
	}
	data, err := io.ReadAll(src)
	src.Close()
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "failed to read uploaded file: " + err.Error()})
		return
	}

	img := pipeline.RawImage{
		Data:     data,
		MimeType: file.Header.Get("Content-Type"),
	}
	overrides := &pipeline.Overrides{
		Title:       c.PostForm("title"),
		Description: c.PostForm("description"),
		Condition:   c.PostForm("condition"),
	}

	result, err := s.creator.Run(c.Request.Context(), img, overrides)
	if err != nil {
		var stageErr *pipeline.StageError
		if errors.As(err, &stageErr) {
			status := http.StatusBadGateway
			if stageErr.Stage == pipeline.StageExtracting {
				status = http.StatusUnprocessableEntity
			}
			c.JSON(status, failureResponse{
				Stage:         stageErr.Stage.String(),
				Error:         stageErr.Err.Error(),
				MediaUploaded: stageErr.MediaUploaded(),
				ItemCreated:   stageErr.ItemCreated(),
			})
			return
		}
		// Invalid overrides or configuration problems never reached a
		// remote call.
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusCreated, result)
}

type runResponse struct {
	ID            int64     `json:"id"`
	CreatedAt     time.Time `json:"created_at"`
	Succeeded     bool      `json:"succeeded"`
	Stage         string    `json:"stage"`
	SKU           string    `json:"sku,omitempty"`
	OfferID       string    `json:"offer_id,omitempty"`
	Title         string    `json:"title,omitempty"`
	Price         float64   `json:"price,omitempty"`
	Currency      string    `json:"currency,omitempty"`
	Error         string    `json:"error,omitempty"`
	MediaUploaded bool      `json:"media_uploaded"`
	ItemCreated   bool      `json:"item_created"`
}

func (s *Server) handleListRuns(c *gin.Context) {
	if s.store == nil {
		c.JSON(http.StatusOK, []runResponse{})
		return
	}

	runs, err := s.store.ListRuns(50)
	if err != nil {
		log.Error().Err(err).Msg("failed to list runs")
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "failed to list runs"})
		return
	}

	out := make([]runResponse, 0, len(runs))
	for _, rec := range runs {
		out = append(out, runResponse{
			ID:            rec.ID,
			CreatedAt:     rec.CreatedAt,
			Succeeded:     rec.Succeeded,
			Stage:         rec.Stage,
			SKU:           rec.SKU,
			OfferID:       rec.OfferID,
			Title:         rec.Title,
			Price:         rec.Price,
			Currency:      rec.Currency,
			Error:         rec.Error,
			MediaUploaded: rec.MediaUploaded,
			ItemCreated:   rec.ItemCreated,
		})
	}
	c.JSON(http.StatusOK, out)
}
