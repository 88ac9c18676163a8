package patient

import (
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/jwalitptl/healthpoint-api/internal/handler"
	"github.com/jwalitptl/healthpoint-api/internal/middleware"
	"github.com/jwalitptl/healthpoint-api/internal/model"
	"github.com/jwalitptl/healthpoint-api/internal/service/booking"
	"github.com/jwalitptl/healthpoint-api/internal/service/patient"
	"github.com/jwalitptl/healthpoint-api/internal/service/payment"
	"github.com/jwalitptl/healthpoint-api/pkg/auth"
	apperrors "github.com/jwalitptl/healthpoint-api/pkg/errors"
	"github.com/jwalitptl/healthpoint-api/pkg/httputil"
)

type Handler struct {
	patients *patient.Service
	booking  *booking.Service
	payments *payment.Service
}

func NewHandler(patients *patient.Service, booking *booking.Service, payments *payment.Service) *Handler {
	return &Handler{patients: patients, booking: booking, payments: payments}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, authMW *middleware.AuthMiddleware) {
	user := r.Group("/user")
	{
		user.POST("/register", h.Register)
		user.POST("/login", h.Login)
	}

	private := user.Group("", authMW.Authenticate(auth.RolePatient), middleware.NoStore())
	{
		private.GET("/get-profile", h.GetProfile)
		private.POST("/update-profile", h.UpdateProfile)
		private.POST("/book-appointment", h.BookAppointment)
		private.GET("/appointments", h.ListAppointments)
		private.POST("/cancel-appointment", h.CancelAppointment)
		private.POST("/payment-razorpay", h.Pay)
		private.POST("/verify-razorpay", h.VerifyPayment)
	}
}

func (h *Handler) Register(c *gin.Context) {
	var req model.RegisterRequest
	if !handler.Bind(c, &req, binding.JSON) {
		return
	}

	token, err := h.patients.Register(c.Request.Context(), req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondCreated(c, "account created", model.TokenResponse{Token: token})
}

func (h *Handler) Login(c *gin.Context) {
	var req model.LoginRequest
	if !handler.Bind(c, &req, binding.JSON) {
		return
	}

	token, err := h.patients.Login(c.Request.Context(), req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, model.TokenResponse{Token: token})
}

func (h *Handler) GetProfile(c *gin.Context) {
	id, _ := middleware.CurrentUser(c)
	p, err := h.patients.GetProfile(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, p)
}

func (h *Handler) UpdateProfile(c *gin.Context) {
	var req model.UpdateProfileRequest
	if !handler.Bind(c, &req, binding.FormMultipart) {
		return
	}
	address, err := model.ParseAddress(req.Address)
	if err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid address", err))
		return
	}

	image, err := handler.FormFile(c, "image")
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	if image != nil {
		defer image.Close()
	}

	id, _ := middleware.CurrentUser(c)
	update := model.ProfileUpdate{
		Name:    req.Name,
		Phone:   req.Phone,
		Address: address,
		DOB:     req.DOB,
		Gender:  req.Gender,
	}

	p, err := h.patients.UpdateProfile(c.Request.Context(), id, update, image)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, p)
}

func (h *Handler) BookAppointment(c *gin.Context) {
	var req model.BookAppointmentRequest
	if !handler.Bind(c, &req, binding.JSON) {
		return
	}
	docID, ok := handler.ParseID(c, req.DocID)
	if !ok {
		return
	}

	id, _ := middleware.CurrentUser(c)
	appt, err := h.booking.Book(c.Request.Context(), id, docID, req.SlotDate, req.SlotTime)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondCreated(c, "appointment booked", appt)
}

func (h *Handler) ListAppointments(c *gin.Context) {
	id, _ := middleware.CurrentUser(c)
	list, err := h.booking.ListForPatient(c.Request.Context(), id)
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

func (h *Handler) Pay(c *gin.Context) {
	var req model.AppointmentIDRequest
	if !handler.Bind(c, &req, binding.JSON) {
		return
	}
	apptID, ok := handler.ParseID(c, req.AppointmentID)
	if !ok {
		return
	}

	id, _ := middleware.CurrentUser(c)
	order, err := h.payments.Pay(c.Request.Context(), apptID, id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, order)
}

func (h *Handler) VerifyPayment(c *gin.Context) {
	var req model.VerifyPaymentRequest
	if !handler.Bind(c, &req, binding.JSON) {
		return
	}

	if err := h.payments.Verify(c.Request.Context(), req.OrderID); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithMessage(c, "payment successful")
}
