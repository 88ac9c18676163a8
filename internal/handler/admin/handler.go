package admin

import (
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/jwalitptl/healthpoint-api/internal/handler"
	"github.com/jwalitptl/healthpoint-api/internal/middleware"
	"github.com/jwalitptl/healthpoint-api/internal/model"
	"github.com/jwalitptl/healthpoint-api/internal/service/admin"
	"github.com/jwalitptl/healthpoint-api/internal/service/booking"
	"github.com/jwalitptl/healthpoint-api/internal/service/doctor"
	"github.com/jwalitptl/healthpoint-api/pkg/auth"
	apperrors "github.com/jwalitptl/healthpoint-api/pkg/errors"
	"github.com/jwalitptl/healthpoint-api/pkg/httputil"
)

type Handler struct {
	admin   *admin.Service
	doctors *doctor.Service
	booking *booking.Service
}

func NewHandler(admin *admin.Service, doctors *doctor.Service, booking *booking.Service) *Handler {
	return &Handler{admin: admin, doctors: doctors, booking: booking}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, authMW *middleware.AuthMiddleware) {
	a := r.Group("/admin")
	a.POST("/login", h.Login)

	private := a.Group("", authMW.Authenticate(auth.RoleAdmin), middleware.NoStore())
	{
		private.POST("/add-doctor", h.AddDoctor)
		private.GET("/all-doctors", h.ListDoctors)
		private.POST("/change-availability", h.ChangeAvailability)
		private.GET("/appointments", h.ListAppointments)
		private.POST("/cancel-appointment", h.CancelAppointment)
		private.GET("/dashboard", h.Dashboard)
	}
}

func (h *Handler) Login(c *gin.Context) {
	var req model.LoginRequest
	if !handler.Bind(c, &req, binding.JSON) {
		return
	}
	token, err := h.admin.Login(req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, model.TokenResponse{Token: token})
}

func (h *Handler) AddDoctor(c *gin.Context) {
	var req model.AddDoctorRequest
	if !handler.Bind(c, &req, binding.FormMultipart) {
		return
	}

	image, err := handler.FormFile(c, "image")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	if image == nil {
		httputil.RespondWithError(c, apperrors.BadRequest("image is required", nil))
		return
	}
	defer image.Close()

	d, err := h.doctors.Add(c.Request.Context(), req, image)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondCreated(c, "doctor added", d)
}

func (h *Handler) ListDoctors(c *gin.Context) {
	list, err := h.doctors.Directory(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, list)
}

func (h *Handler) ChangeAvailability(c *gin.Context) {
	var req model.ChangeAvailabilityRequest
	if !handler.Bind(c, &req, binding.JSON) {
		return
	}
	id, ok := handler.ParseID(c, req.DocID)
	if !ok {
		return
	}

	available, err := h.doctors.ToggleAvailability(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"available": available})
}

func (h *Handler) ListAppointments(c *gin.Context) {
	list, err := h.booking.ListAll(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, list)
}

func (h *Handler) CancelAppointment(c *gin.Context) {
	var req model.AppointmentIDRequest
	if !handler.Bind(c, &req, binding.JSON) {
		return
	}
	apptID, ok := handler.ParseID(c, req.AppointmentID)
	if !ok {
		return
	}

	if err := h.booking.Cancel(c.Request.Context(), apptID, booking.Actor{Role: auth.RoleAdmin}); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithMessage(c, "appointment cancelled")
}

func (h *Handler) Dashboard(c *gin.Context) {
	data, err := h.admin.Dashboard(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, data)
}
