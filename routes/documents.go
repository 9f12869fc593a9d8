package routes

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"pdf-qa-service/internal/config"
	"pdf-qa-service/internal/logger"
	"pdf-qa-service/middleware"
	"pdf-qa-service/models"
	"pdf-qa-service/services"
	"pdf-qa-service/utils"

	"github.com/gin-gonic/gin"
)

func SetupDocumentRoutes(router *gin.Engine, cfg *config.Config, qa *services.QAService) {
	router.POST("/upload_pdf", func(c *gin.Context) {
		fileHeader, err := c.FormFile("file")
		if err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				utils.RespondWithTooLarge(c, cfg.MaxFileSize)
				return
			}
			utils.RespondWithBadRequest(c, "No PDF file uploaded.", gin.H{"error": err.Error()})
			return
		}
		if fileHeader.Size > cfg.MaxFileSize {
			utils.RespondWithTooLarge(c, cfg.MaxFileSize)
			return
		}

		file, err := fileHeader.Open()
		if err != nil {
			utils.RespondWithBadRequest(c, "Failed to read the PDF document.", nil)
			return
		}
		defer file.Close()

		content, err := io.ReadAll(file)
		if err != nil {
			utils.RespondWithBadRequest(c, "Failed to read the PDF document.", nil)
			return
		}

		doc, err := qa.UploadPDF(c.Request.Context(), c.PostForm("title"), content)
		switch {
		case err == nil:
		case errors.Is(err, services.ErrUnreadablePDF):
			logger.Warn("Rejected unreadable PDF", "filename", fileHeader.Filename, "error", err, "request_id", middleware.GetRequestID(c))
			utils.RespondWithBadRequest(c, "Failed to read the PDF document.", nil)
			return
		case errors.Is(err, services.ErrNoTextExtracted):
			logger.Warn("No text extracted from PDF", "filename", fileHeader.Filename, "request_id", middleware.GetRequestID(c))
			utils.RespondWithBadRequest(c, "No text found in the PDF document.", nil)
			return
		default:
			logger.Error("Failed to process upload", "filename", fileHeader.Filename, "error", err, "request_id", middleware.GetRequestID(c))
			utils.RespondWithInternalError(c, "An error occurred while processing the PDF document.", nil)
			return
		}

		c.JSON(http.StatusOK, models.UploadResponse{DocumentID: doc.ID})
	})

	router.POST("/ask_question", func(c *gin.Context) {
		var req models.AskRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}

		result, err := qa.Ask(c.Request.Context(), req.DocumentID, req.Question)
		if err != nil {
			respondWithAskError(c, err)
			return
		}

		c.JSON(http.StatusOK, models.AskResponse{Answer: result.Answer})
	})

	router.GET("/document/:id/questions", func(c *gin.Context) {
		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			utils.RespondWithBadRequest(c, "Document id must be an integer.", gin.H{"id": c.Param("id")})
			return
		}

		history, err := qa.QuestionHistory(c.Request.Context(), id)
		var notFound *services.DocumentNotFoundError
		switch {
		case errors.As(err, &notFound):
			utils.RespondWithNotFound(c, notFound.Error(), gin.H{"available_document_ids": notFound.Available})
			return
		case err != nil:
			logger.Error("Failed to load question history", "document_id", id, "error", err)
			utils.RespondWithInternalError(c, "Failed to load question history.", nil)
			return
		case len(history) == 0:
			utils.RespondWithNotFound(c, "No questions found for this document.", nil)
			return
		}

		c.JSON(http.StatusOK, models.ToPairs(history))
	})

	router.GET("/documents", func(c *gin.Context) {
		ctx, cancel := utils.WithTimeout(c.Request.Context())
		defer cancel()

		docs, err := qa.ListDocuments(ctx)
		if err != nil {
			logger.Error("Failed to list documents", "error", err)
			utils.RespondWithInternalError(c, "Failed to list documents.", nil)
			return
		}

		summaries := make([]models.DocumentSummary, 0, len(docs))
		for _, d := range docs {
			summaries = append(summaries, models.DocumentSummary{
				ID:        d.ID,
				Title:     d.Title,
				Text:      d.Text,
				Questions: models.ToPairs(d.History),
			})
		}
		c.JSON(http.StatusOK, summaries)
	})
}

func respondWithAskError(c *gin.Context, err error) {
	var notFound *services.DocumentNotFoundError
	var modelErr *services.ModelError

	switch {
	case errors.Is(err, services.ErrEmptyQuestion):
		utils.RespondWithBadRequest(c, "Question must not be empty.", nil)
	case errors.As(err, &notFound):
		utils.RespondWithNotFound(c, notFound.Error(), gin.H{"available_document_ids": notFound.Available})
	case errors.Is(err, services.ErrNoChunks):
		logger.Error("No text chunks created", "error", err, "request_id", middleware.GetRequestID(c))
		utils.RespondWithInternalError(c, "No text chunks created from the document.", nil)
	case errors.As(err, &modelErr):
		logger.Error("Model call failed", "stage", modelErr.Stage, "error", modelErr.Err, "request_id", middleware.GetRequestID(c))
		utils.RespondWithInternalError(c, "An error occurred while processing the question.", nil)
	default:
		logger.Error("Failed to answer question", "error", err, "request_id", middleware.GetRequestID(c))
		utils.RespondWithInternalError(c, "An error occurred while processing the question.", nil)
	}
}
