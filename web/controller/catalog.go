package controller

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/thucvatbm/species-catalog/logger"
	"github.com/thucvatbm/species-catalog/storage"
	"github.com/thucvatbm/species-catalog/web/service"
)

// CatalogController serves the public listing, the CSV export and the
// stored images.
type CatalogController struct {
	catalogService service.CatalogService
	uploadService  *service.UploadService
}

func NewCatalogController(g *gin.RouterGroup, uploads *service.UploadService) *CatalogController {
	a := &CatalogController{uploadService: uploads}
	a.initRouter(g)
	return a
}

func (a *CatalogController) initRouter(g *gin.RouterGroup) {
	g.GET("/", a.index)
	g.GET("/export.csv", a.exportCSV)
	g.GET("/uploads/*filename", a.upload)
}

func (a *CatalogController) index(c *gin.Context) {
	filter := service.NewFilter(c.Query("q"), c.Query("field"))
	list, err := a.catalogService.Search(c.Request.Context(), filter)
	if err != nil {
		serverError(c, "search species", err)
		return
	}
	html(c, "index.html", "pages.index.title", gin.H{
		"species": list,
		"q":       filter.Query,
		"field":   string(filter.Field),
	})
}

// exportCSV streams the export line by line. Once the header line is out an
// error can only truncate the response.
func (a *CatalogController) exportCSV(c *gin.Context) {
	filter := service.NewFilter(c.Query("q"), c.Query("field"))

	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", "attachment; filename="+service.ExportFilename)
	c.Status(http.StatusOK)

	for line, err := range a.catalogService.ExportCSV(c.Request.Context(), filter) {
		if err != nil {
			logger.Error("export csv:", err)
			return
		}
		if _, err := io.WriteString(c.Writer, line); err != nil {
			logger.Debug("export csv aborted by client:", err)
			return
		}
	}
	c.Writer.Flush()
}

func (a *CatalogController) upload(c *gin.Context) {
	name := strings.TrimPrefix(c.Param("filename"), "/")
	obj, err := a.uploadService.Open(c.Request.Context(), name)
	if errors.Is(err, storage.ErrNotExist) {
		notFound(c)
		return
	}
	if err != nil {
		serverError(c, "open upload", err)
		return
	}
	defer obj.Close()

	if rs, ok := obj.ReadCloser.(io.ReadSeeker); ok {
		c.Header("Content-Type", obj.ContentType)
		http.ServeContent(c.Writer, c.Request, obj.Name, obj.ModTime, rs)
		return
	}
	c.DataFromReader(http.StatusOK, obj.Size, obj.ContentType, obj, nil)
}
