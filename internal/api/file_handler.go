package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"shop-service/internal/service"
)

type FileHandler struct {
	fileService *service.FileService
}

func NewFileHandler(fileService *service.FileService) *FileHandler {
	return &FileHandler{fileService: fileService}
}

// ReadFile --> GET /api/files/read-file
func (h *FileHandler) ReadFile(c echo.Context) error {
	file, err := h.fileService.ReadFile(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"content": file.Content})
}

// ReadFiles --> GET /api/files/multiple-files
func (h *FileHandler) ReadFiles(c echo.Context) error {
	files, err := h.fileService.ReadFiles(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"files": files})
}
