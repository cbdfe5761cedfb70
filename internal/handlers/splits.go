package handlers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/splittab/backend/internal/middleware"
	"github.com/splittab/backend/internal/services"
	"github.com/splittab/backend/internal/storage"
	"github.com/splittab/backend/pkg/logger"
	"github.com/splittab/backend/pkg/utils"
)

const (
	maxProofSize   = 10 * 1024 * 1024
	proofURLExpiry = 15 * time.Minute
)

type SplitsHandler struct {
	Splits  *services.SplitService
	Storage *storage.MinIOClient
}

func NewSplitsHandler(splits *services.SplitService, storageClient *storage.MinIOClient) *SplitsHandler {
	return &SplitsHandler{Splits: splits, Storage: storageClient}
}

// SubmitProof accepts either a JSON body with a UPI reference or a multipart
// form carrying a screenshot (field "proof") plus an optional reference.
func (h *SplitsHandler) SubmitProof(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	splitID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid split id")
	}

	var input services.SubmitProofInput

	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		if ref := strings.TrimSpace(c.FormValue("upiReference")); ref != "" {
			input.UpiReference = &ref
		}

		fileHeader, err := c.FormFile("proof")
		if err == nil {
			if h.Storage == nil {
				return utils.Error(c, fiber.StatusServiceUnavailable, "proof storage is not configured")
			}
			if fileHeader.Size > maxProofSize {
				return utils.Error(c, fiber.StatusBadRequest, "proof screenshot exceeds 10MB")
			}
			contentType := fileHeader.Header.Get("Content-Type")
			if !strings.HasPrefix(contentType, "image/") {
				return utils.Error(c, fiber.StatusBadRequest, "proof must be an image")
			}

			file, err := fileHeader.Open()
			if err != nil {
				return utils.Error(c, fiber.StatusBadRequest, "failed reading proof upload")
			}
			defer file.Close()

			objectName := storage.ProofObjectName(splitID)
			if err := h.Storage.Upload(c.Context(), objectName, file, fileHeader.Size, contentType); err != nil {
				logger.ErrorWithUser(user.ID.String(), "proof_store_failed", err, map[string]interface{}{
					"split_id": splitID,
				})
				return utils.Error(c, fiber.StatusInternalServerError, "failed storing proof screenshot")
			}
			input.ProofImageURL = &objectName
		}
	} else {
		var req struct {
			UpiReference *string `json:"upiReference"`
		}
		if err := c.BodyParser(&req); err != nil {
			return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
		}
		input.UpiReference = req.UpiReference
	}

	split, err := h.Splits.SubmitProof(c.Context(), user.ID, splitID, input)
	if err != nil {
		return serviceError(c, err)
	}

	logger.InfoWithUser(user.ID.String(), "proof_submitted", map[string]interface{}{
		"split_id": split.ID,
		"bill_id":  split.BillID,
	})

	return utils.Success(c, fiber.StatusOK, split)
}

// ProofURL hands a verifier a short-lived presigned link to the stored
// screenshot.
func (h *SplitsHandler) ProofURL(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	splitID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid split id")
	}
	if h.Storage == nil {
		return utils.Error(c, fiber.StatusServiceUnavailable, "proof storage is not configured")
	}

	split, err := h.Splits.GetSplitForViewer(c.Context(), user.ID, splitID)
	if err != nil {
		return serviceError(c, err)
	}
	if split.ProofImageURL == nil {
		return utils.Error(c, fiber.StatusNotFound, "no proof screenshot on this split")
	}

	url, err := h.Storage.PresignedGetURL(c.Context(), *split.ProofImageURL, proofURLExpiry, "")
	if err != nil {
		logger.ErrorWithUser(user.ID.String(), "proof_url_failed", err, map[string]interface{}{
			"split_id": splitID,
		})
		return utils.Error(c, fiber.StatusInternalServerError, "failed generating proof url")
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{"url": url})
}

// DownloadProof streams the stored screenshot through the API. Covers
// clients that cannot reach the object store directly, where a presigned
// link would point at an unreachable endpoint.
func (h *SplitsHandler) DownloadProof(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	splitID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid split id")
	}
	if h.Storage == nil {
		return utils.Error(c, fiber.StatusServiceUnavailable, "proof storage is not configured")
	}

	split, err := h.Splits.GetSplitForViewer(c.Context(), user.ID, splitID)
	if err != nil {
		return serviceError(c, err)
	}
	if split.ProofImageURL == nil {
		return utils.Error(c, fiber.StatusNotFound, "no proof screenshot on this split")
	}

	obj, err := h.Storage.Download(c.Context(), *split.ProofImageURL)
	if err != nil {
		logger.ErrorWithUser(user.ID.String(), "proof_fetch_failed", err, map[string]interface{}{
			"split_id": splitID,
		})
		return utils.Error(c, fiber.StatusInternalServerError, "failed fetching proof screenshot")
	}

	info, err := obj.Stat()
	if err != nil {
		obj.Close()
		return utils.Error(c, fiber.StatusInternalServerError, "failed fetching proof screenshot")
	}
	if info.ContentType != "" {
		c.Set(fiber.HeaderContentType, info.ContentType)
	}
	return c.SendStream(obj, int(info.Size))
}

func (h *SplitsHandler) Confirm(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	splitID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid split id")
	}

	split, err := h.Splits.ConfirmSplit(c.Context(), user.ID, splitID)
	if err != nil {
		return serviceError(c, err)
	}

	logger.InfoWithUser(user.ID.String(), "split_confirmed", map[string]interface{}{
		"split_id": split.ID,
		"bill_id":  split.BillID,
	})

	return utils.Success(c, fiber.StatusOK, split)
}

type rejectSplitRequest struct {
	Reason string `json:"reason"`
}

func (h *SplitsHandler) Reject(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	splitID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid split id")
	}

	var req rejectSplitRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	split, err := h.Splits.RejectSplit(c.Context(), user.ID, splitID, strings.TrimSpace(req.Reason))
	if err != nil {
		return serviceError(c, err)
	}

	logger.InfoWithUser(user.ID.String(), "split_rejected", map[string]interface{}{
		"split_id": split.ID,
		"bill_id":  split.BillID,
	})

	return utils.Success(c, fiber.StatusOK, split)
}
