package controller

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/thucvatbm/species-catalog/database/model"
	"github.com/thucvatbm/species-catalog/logger"
	"github.com/thucvatbm/species-catalog/util/metrics"
	"github.com/thucvatbm/species-catalog/web/locale"
	"github.com/thucvatbm/species-catalog/web/service"
)

var speciesFormFields = []string{
	"common_name",
	"scientific_name",
	"family",
	"genus",
	"location",
	"status",
	"description",
}

// SpeciesController handles the species detail page and the authenticated
// add, edit and delete routes.
type SpeciesController struct {
	BaseController

	speciesService service.SpeciesService
	uploadService  *service.UploadService
}

func NewSpeciesController(g *gin.RouterGroup, uploads *service.UploadService) *SpeciesController {
	a := &SpeciesController{uploadService: uploads}
	a.initRouter(g)
	return a
}

func (a *SpeciesController) initRouter(g *gin.RouterGroup) {
	g.GET("/species/:id", a.detail)

	g = g.Group("/", a.checkLogin)
	g.GET("/add", a.addPage)
	g.POST("/add", a.add)
	g.GET("/edit/:id", a.editPage)
	g.POST("/edit/:id", a.edit)
	g.POST("/delete/:id", a.delete)
}

// speciesInput reads the submitted fields. A field missing from the form
// stays nil so an update keeps its current value.
func speciesInput(c *gin.Context) service.SpeciesInput {
	values := make(map[string]*string, len(speciesFormFields))
	for _, name := range speciesFormFields {
		if v, ok := c.GetPostForm(name); ok {
			values[name] = &v
		}
	}
	return service.SpeciesInput{
		CommonName:     values["common_name"],
		ScientificName: values["scientific_name"],
		Family:         values["family"],
		Genus:          values["genus"],
		Location:       values["location"],
		Status:         values["status"],
		Description:    values["description"],
	}
}

// acceptImage stores the "image" file if one was sent with an allowed
// extension and records its name on in.
func (a *SpeciesController) acceptImage(c *gin.Context, in *service.SpeciesInput) error {
	file, err := c.FormFile("image")
	if err != nil {
		if !errors.Is(err, http.ErrMissingFile) {
			logger.Debug("no image in form:", err)
		}
		return nil
	}
	name, err := a.uploadService.Accept(c.Request.Context(), file)
	if err != nil {
		return err
	}
	if name != "" {
		in.ImagePath = &name
	}
	return nil
}

func (a *SpeciesController) renderForm(c *gin.Context, status int, title string, action string, sp model.Species, errMsg string) {
	data := gin.H{
		"species": sp,
		"action":  action,
	}
	if errMsg != "" {
		data["error"] = errMsg
	}
	htmlStatus(c, status, "form.html", title, data)
}

func (a *SpeciesController) detail(c *gin.Context) {
	id, ok := paramId(c)
	if !ok {
		return
	}
	sp, err := a.speciesService.Get(c.Request.Context(), id)
	if errors.Is(err, service.ErrNotFound) {
		notFound(c)
		return
	}
	if err != nil {
		serverError(c, "get species", err)
		return
	}
	html(c, "detail.html", "pages.detail.title", gin.H{"species": sp})
}

func (a *SpeciesController) addPage(c *gin.Context) {
	a.renderForm(c, http.StatusOK, "pages.form.addTitle", "/add", model.Species{}, "")
}

func (a *SpeciesController) add(c *gin.Context) {
	in := speciesInput(c)
	if err := in.Validate(model.Species{}); err != nil {
		a.renderForm(c, http.StatusBadRequest, "pages.form.addTitle", "/add",
			in.Preview(model.Species{}), locale.I18n(c, "flash.requiredFields"))
		return
	}
	if err := a.acceptImage(c, &in); err != nil {
		serverError(c, "store image", err)
		return
	}

	sp, err := a.speciesService.Create(c.Request.Context(), in)
	if err != nil {
		serverError(c, "create species", err)
		return
	}
	metrics.SpeciesCreated()
	logger.Infof("species %d %q created", sp.Id, sp.CommonName)
	flash(c, "flash.added")
	c.Redirect(http.StatusSeeOther, "/")
}

func (a *SpeciesController) editPage(c *gin.Context) {
	id, ok := paramId(c)
	if !ok {
		return
	}
	sp, err := a.speciesService.Get(c.Request.Context(), id)
	if errors.Is(err, service.ErrNotFound) {
		notFound(c)
		return
	}
	if err != nil {
		serverError(c, "get species", err)
		return
	}
	a.renderForm(c, http.StatusOK, "pages.form.editTitle", fmt.Sprintf("/edit/%d", id), *sp, "")
}

func (a *SpeciesController) edit(c *gin.Context) {
	id, ok := paramId(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	current, err := a.speciesService.Get(ctx, id)
	if errors.Is(err, service.ErrNotFound) {
		notFound(c)
		return
	}
	if err != nil {
		serverError(c, "get species", err)
		return
	}

	in := speciesInput(c)
	if err := in.Validate(*current); err != nil {
		a.renderForm(c, http.StatusBadRequest, "pages.form.editTitle", fmt.Sprintf("/edit/%d", id),
			in.Preview(*current), locale.I18n(c, "flash.requiredFields"))
		return
	}
	if err := a.acceptImage(c, &in); err != nil {
		serverError(c, "store image", err)
		return
	}

	sp, err := a.speciesService.Update(ctx, id, in)
	if errors.Is(err, service.ErrNotFound) {
		notFound(c)
		return
	}
	if err != nil {
		serverError(c, "update species", err)
		return
	}
	metrics.SpeciesUpdated()
	logger.Infof("species %d %q updated", sp.Id, sp.CommonName)
	flash(c, "flash.updated")
	c.Redirect(http.StatusSeeOther, fmt.Sprintf("/species/%d", sp.Id))
}

func (a *SpeciesController) delete(c *gin.Context) {
	id, ok := paramId(c)
	if !ok {
		return
	}
	err := a.speciesService.Delete(c.Request.Context(), id)
	if errors.Is(err, service.ErrNotFound) {
		notFound(c)
		return
	}
	if err != nil {
		serverError(c, "delete species", err)
		return
	}
	metrics.SpeciesDeleted()
	logger.Infof("species %d deleted", id)
	flash(c, "flash.deleted")
	c.Redirect(http.StatusSeeOther, "/")
}
