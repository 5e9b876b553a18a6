package echoapi

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/user"
)

var errCrsNotFoundInCtx = errors.New("course object not found in echo.Context")

// material types by file extension; anything else is a plain document.
var materialTypes = map[string]string{
	".pdf":  "pdf",
	".mp4":  "video",
	".webm": "video",
	".ppt":  "presentation",
	".pptx": "presentation",
}

type courseApi struct {
	svc      course.ServiceInterface
	usrSvc   user.ServiceInterface
	conf     *core.Config
	validate *validator.Validate
}

func registerCourseAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc course.ServiceInterface,
	usrSvc user.ServiceInterface,
	conf *core.Config,
	validate *validator.Validate,
) {
	api := courseApi{
		svc:      svc,
		usrSvc:   usrSvc,
		conf:     conf,
		validate: validate,
	}

	cg := g.Group("/courses", jwt)
	cg.POST("", api.create, staffMiddleware())
	cg.GET("", api.query)

	dg := cg.Group("/:id", courseAccessMiddleware(svc, usrSvc))
	dg.GET("", api.retrieve)
	dg.PUT("", api.update, staffMiddleware())
	dg.DELETE("", api.destroy, adminMiddleware())
	dg.POST("/enroll", api.enroll)
	dg.DELETE("/enroll", api.unenroll)
	dg.POST("/students/:studentID", api.addStudent, staffMiddleware())
	dg.DELETE("/students/:studentID", api.removeStudent, staffMiddleware())
	dg.POST("/materials", api.uploadMaterial, staffMiddleware())
}

// courseAccessMiddleware resolves the course and rejects users who may not
// see it. Enrollment endpoints are exempt: a student must be able to enroll
// in a course they do not belong to yet.
func courseAccessMiddleware(svc course.ServiceInterface, usrSvc user.ServiceInterface) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			ctxUsr, err := getContextUser(ctx, usrSvc)
			if err != nil {
				return errors.Wrap(err, "getting context user")
			}

			if strings.HasSuffix(ctx.Path(), "/enroll") {
				crs, err := svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
				if err != nil {
					if errors.Cause(err) == course.ErrNotFound {
						return errHttpNotFound
					}
					return errors.Wrap(err, "finding course by ID")
				}
				ctx.Set("object", crs)
				return next(ctx)
			}

			crs, err := svc.CanAccess(ctx.Request().Context(), ctxUsr, ctx.Param("id"))
			if err != nil {
				switch errors.Cause(err) {
				case course.ErrNotFound:
					return errHttpNotFound
				case course.ErrAccessDenied:
					return errHttpForbidden
				}
				return errors.Wrap(err, "checking course access")
			}
			ctx.Set("object", crs)
			return next(ctx)
		}
	}
}

// Handlers

func (api *courseApi) create(ctx echo.Context) error {
	var data course.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	if err := data.Validate(ctx.Request().Context(), api.validate, api.svc); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	crs, err := api.svc.Create(ctx.Request().Context(), ctxUsr.ID, data)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	return ctx.JSON(http.StatusCreated, crs)
}

func (api *courseApi) query(ctx echo.Context) error {
	filter := new(course.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []course.Course{})
	}

	// students only see their own courses
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if ctxUsr.IsStudent() {
		filter.StudentID = ctxUsr.ID
	}

	ordering := new(Ordering)
	ordering.Bind(ctx)

	courses, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	if courses == nil {
		courses = []course.Course{}
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *courseApi) retrieve(ctx echo.Context) error {
	crs, ok := ctx.Get("object").(course.Course)
	if !ok {
		return errors.Wrap(errCrsNotFoundInCtx, "retrieving object from context")
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseApi) update(ctx echo.Context) error {
	crs, ok := ctx.Get("object").(course.Course)
	if !ok {
		return errors.Wrap(errCrsNotFoundInCtx, "retrieving object from context")
	}

	// only the owning teacher or an admin may edit
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if !ctxUsr.IsAdmin() && crs.TeacherID != ctxUsr.ID {
		return errHttpForbidden
	}

	var data course.UpdateCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCourse")
	}
	if err := data.Validate(ctx.Request().Context(), api.validate, crs, api.svc); err != nil {
		return err
	}

	crs, err = api.svc.Update(ctx.Request().Context(), crs.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating course")
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseApi) destroy(ctx echo.Context) error {
	crs, ok := ctx.Get("object").(course.Course)
	if !ok {
		return errors.Wrap(errCrsNotFoundInCtx, "retrieving object from context")
	}
	if err := api.svc.Delete(ctx.Request().Context(), crs.ID); err != nil {
		return errors.Wrap(err, "deleting course")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *courseApi) enroll(ctx echo.Context) error {
	crs, ok := ctx.Get("object").(course.Course)
	if !ok {
		return errors.Wrap(errCrsNotFoundInCtx, "retrieving object from context")
	}
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if !ctxUsr.IsStudent() {
		return errHttpForbidden
	}
	if err := api.svc.Enroll(ctx.Request().Context(), crs.ID, ctxUsr.ID); err != nil {
		return errors.Wrap(err, "enrolling student")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *courseApi) unenroll(ctx echo.Context) error {
	crs, ok := ctx.Get("object").(course.Course)
	if !ok {
		return errors.Wrap(errCrsNotFoundInCtx, "retrieving object from context")
	}
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if err := api.svc.Unenroll(ctx.Request().Context(), crs.ID, ctxUsr.ID); err != nil {
		return errors.Wrap(err, "unenrolling student")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *courseApi) addStudent(ctx echo.Context) error {
	crs, ok := ctx.Get("object").(course.Course)
	if !ok {
		return errors.Wrap(errCrsNotFoundInCtx, "retrieving object from context")
	}

	usr, err := api.usrSvc.GetByID(ctx.Request().Context(), ctx.Param("studentID"))
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding user by ID")
	}
	if !usr.IsStudent() {
		return core.NewValidationError(errors.New("only students can be enrolled"))
	}

	if err := api.svc.Enroll(ctx.Request().Context(), crs.ID, usr.ID); err != nil {
		return errors.Wrap(err, "enrolling student")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *courseApi) removeStudent(ctx echo.Context) error {
	crs, ok := ctx.Get("object").(course.Course)
	if !ok {
		return errors.Wrap(errCrsNotFoundInCtx, "retrieving object from context")
	}
	if err := api.svc.Unenroll(ctx.Request().Context(), crs.ID, ctx.Param("studentID")); err != nil {
		return errors.Wrap(err, "unenrolling student")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// uploadMaterial accepts a multipart "file" part, or a JSON body with a
// "title" and an external "url" for linked materials.
func (api *courseApi) uploadMaterial(ctx echo.Context) error {
	crs, ok := ctx.Get("object").(course.Course)
	if !ok {
		return errors.Wrap(errCrsNotFoundInCtx, "retrieving object from context")
	}

	file, err := ctx.FormFile("file")
	if err != nil {
		// no file part; try a linked material
		var data linkedMaterialRequest
		if err := ctx.Bind(&data); err != nil {
			return errors.Wrap(err, "binding to linkedMaterialRequest")
		}
		if err := api.validate.Struct(&data); err != nil {
			return err
		}
		mat, err := api.svc.AddMaterial(ctx.Request().Context(), crs.ID, course.Material{
			Title: data.Title,
			Type:  "link",
			URL:   data.URL,
		})
		if err != nil {
			return errors.Wrap(err, "adding material")
		}
		return ctx.JSON(http.StatusCreated, mat)
	}

	if file.Size > api.conf.Uploads.MaxSize {
		return core.NewValidationError(
			nil, core.FieldError{Field: "file", Error: fmt.Sprintf("file exceeds %d bytes", api.conf.Uploads.MaxSize)})
	}

	src, err := file.Open()
	if err != nil {
		return errors.Wrap(err, "opening uploaded file")
	}
	defer src.Close()

	ext := strings.ToLower(filepath.Ext(file.Filename))
	name := uuid.New().String() + ext
	dir := filepath.Join(api.conf.Uploads.Dir, crs.ID)
	if err = os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "creating uploads dir")
	}
	dst, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return errors.Wrap(err, "creating uploaded file")
	}
	defer dst.Close()
	if _, err = io.Copy(dst, src); err != nil {
		return errors.Wrap(err, "saving uploaded file")
	}

	matType, ok := materialTypes[ext]
	if !ok {
		matType = "document"
	}
	mat, err := api.svc.AddMaterial(ctx.Request().Context(), crs.ID, course.Material{
		Title: file.Filename,
		Type:  matType,
		URL:   api.conf.Uploads.ServePrefix + "/" + crs.ID + "/" + name,
	})
	if err != nil {
		return errors.Wrap(err, "adding material")
	}
	return ctx.JSON(http.StatusCreated, mat)
}

type linkedMaterialRequest struct {
	Title string `json:"title" validate:"required"`
	URL   string `json:"url" validate:"required,url"`
}
