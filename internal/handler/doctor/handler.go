package doctor

import (
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/jwalitptl/healthpoint-api/internal/handler"
	"github.com/jwalitptl/healthpoint-api/internal/middleware"
	"github.com/jwalitptl/healthpoint-api/internal/model"
	"github.com/jwalitptl/healthpoint-api/internal/service/booking"
	"github.com/jwalitptl/healthpoint-api/internal/service/doctor"
	"github.com/jwalitptl/healthpoint-api/pkg/auth"
	"github.com/jwalitptl/healthpoint-api/pkg/httputil"
)

type Handler struct {
	doctors *doctor.Service
	booking *booking.Service
	// publicMaxAge is the Cache-Control max-age of the public listings.
	publicMaxAge int
}

func NewHandler(doctors *doctor.Service, booking *booking.Service, publicMaxAge int) *Handler {
	return &Handler{doctors: doctors, booking: booking, publicMaxAge: publicMaxAge}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, authMW *middleware.AuthMiddleware) {
	d := r.Group("/doctor")

	public := d.Group("", middleware.PublicCache(h.publicMaxAge))
	{
		public.GET("/list", h.List)
		public.GET("/slots/:id", h.Slots)
	}

	d.POST("/login", h.Login)

	panel := d.Group("", authMW.Authenticate(auth.RoleDoctor), middleware.NoStore())
	{
		panel.GET("/appointments", h.Appointments)
		panel.POST("/cancel-appointment", h.CancelAppointment)
		panel.POST("/complete-appointment", h.CompleteAppointment)
		panel.POST("/change-availability", h.ChangeAvailability)
	}
}

func (h *Handler) List(c *gin.Context) {
	list, err := h.doctors.Directory(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, list)
}

func (h *Handler) Slots(c *gin.Context) {
	id, ok := handler.ParseID(c, c.Param("id"))
	if !ok {
		return
	}
	days, err := h.doctors.Calendar(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, days)
}

func (h *Handler) Login(c *gin.Context) {
	var req model.LoginRequest
	if !handler.Bind(c, &req, binding.JSON) {
		return
	}
	token, err := h.doctors.Login(c.Request.Context(), req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, model.TokenResponse{Token: token})
}

func (h *Handler) Appointments(c *gin.Context) {
	id, _ := middleware.CurrentUser(c)
	list, err := h.booking.ListForDoctor(c.Request.Context(), id)
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

	id, role := middleware.CurrentUser(c)
	if err := h.booking.Cancel(c.Request.Context(), apptID, booking.Actor{ID: id, Role: role}); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithMessage(c, "appointment cancelled")
}

func (h *Handler) CompleteAppointment(c *gin.Context) {
	var req model.AppointmentIDRequest
	if !handler.Bind(c, &req, binding.JSON) {
		return
	}
	apptID, ok := handler.ParseID(c, req.AppointmentID)
	if !ok {
		return
	}

	id, _ := middleware.CurrentUser(c)
	if err := h.booking.Complete(c.Request.Context(), apptID, id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithMessage(c, "appointment completed")
}

// ChangeAvailability toggles the calling doctor's own availability.
func (h *Handler) ChangeAvailability(c *gin.Context) {
	id, _ := middleware.CurrentUser(c)
	available, err := h.doctors.ToggleAvailability(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"available": available})
}
