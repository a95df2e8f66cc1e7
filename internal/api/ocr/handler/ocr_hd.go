package ocrHandler

import (
	ocrApi "OCRService/internal/api/ocr"
	"OCRService/internal/entity"
	contextPkg "OCRService/pkg/context"
	"OCRService/pkg/handlerUtil"
	"OCRService/pkg/log"

	"github.com/gofiber/fiber/v2"
)

func (h *OCRHandler) Upload(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	errHandler := handlerUtil.New(h.log)

	var form ocrApi.UploadForm
	if err := ctx.BodyParser(&form); err != nil {
		return errHandler.Handle(ctx, requestID, ocrApi.ErrInvalidForm, ctx.Path(), "parse_form")
	}

	output := form.Output
	if output == "" {
		output = ctx.Query("output")
	}
	format, err := ocrApi.ParseOutput(output)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "parse_output")
	}

	if err := h.validator.Struct(form); err != nil {
		return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
	}

	file, err := ctx.FormFile("file")
	if err != nil {
		return errHandler.Handle(ctx, requestID, ocrApi.ErrNoFile, ctx.Path(), "form_file")
	}

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"path":       ctx.Path(),
		"file_name":  file.Filename,
		"file_size":  file.Size,
	}).Debug("Processing file upload")

	if err := h.utils.ValidateImageFile(file); err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "validate_image_file")
	}

	data, err := h.utils.ReadFile(file)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "read_file")
	}

	result, err := h.ocrService.Process(contextPkg.FromFiberCtx(ctx), entity.ImageRequest{
		Data:                data,
		DeclaredContentType: file.Header.Get(fiber.HeaderContentType),
		DetThresh:           form.DetThresh,
		RecThresh:           form.RecThresh,
	})
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "process_upload")
	}

	return h.respond(ctx, errHandler, requestID, format, result)
}

func (h *OCRHandler) FromURL(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	errHandler := handlerUtil.New(h.log)

	format, err := ocrApi.ParseOutput(ctx.Query("output"))
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "parse_output")
	}

	var req ocrApi.URLRequest
	if err := ctx.BodyParser(&req); err != nil {
		return errHandler.Handle(ctx, requestID, ocrApi.ErrInvalidBody, ctx.Path(), "parse_request_body")
	}

	if err := h.validator.Struct(req); err != nil {
		return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
	}

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"path":       ctx.Path(),
		"file_url":   req.FileURL,
	}).Debug("Processing URL request")

	result, err := h.ocrService.Process(contextPkg.FromFiberCtx(ctx), entity.ImageRequest{
		URL:       req.FileURL,
		DetThresh: req.DetThresh,
		RecThresh: req.RecThresh,
	})
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "process_url")
	}

	return h.respond(ctx, errHandler, requestID, format, result)
}

func (h *OCRHandler) respond(ctx *fiber.Ctx, errHandler *handlerUtil.ErrorHandler, requestID, format string, result *entity.OCRResult) error {
	h.log.WithFields(log.Fields{
		"request_id":         requestID,
		"path":               ctx.Path(),
		"detections":         result.NumDetections,
		"processing_time_ms": result.ProcessingTimeMs,
	}).Info("OCR request successful")

	if format == ocrApi.OutputText {
		return errHandler.HandleText(ctx, requestID, ocrApi.Text(result))
	}
	return errHandler.HandleSuccess(ctx, requestID, fiber.StatusOK, ocrApi.Success(result, requestID))
}
