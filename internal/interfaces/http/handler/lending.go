package handler

import (
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	lendingapp "github.com/terraloan/backend/internal/application/lending"
	"github.com/terraloan/backend/internal/domain/lending"
	"github.com/terraloan/backend/internal/interfaces/http/dto"
	"github.com/terraloan/backend/internal/interfaces/http/middleware"
)

// LendingHandler exposes the loan application and loan endpoints
type LendingHandler struct {
	BaseHandler
	service *lendingapp.LifecycleService
}

// NewLendingHandler creates a new LendingHandler
func NewLendingHandler(service *lendingapp.LifecycleService) *LendingHandler {
	return &LendingHandler{service: service}
}

// RegisterRoutes registers the lending routes
func (h *LendingHandler) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group("/lending")
	{
		group.POST("/applications", h.CreateApplication)
		group.GET("/applications", h.ListApplications)
		group.GET("/applications/:id", h.GetApplication)
		group.POST("/applications/:id/submit", h.SubmitForReview)
		group.POST("/applications/:id/approve", h.Approve)
		group.POST("/applications/:id/reject", h.Reject)
		group.POST("/applications/:id/collateral-image", h.AttachCollateralImage)
		group.GET("/loans", h.ListLoans)
		group.GET("/loans/:id", h.GetLoan)
		group.PUT("/loans/:id", h.UpdateLoan)
		group.DELETE("/loans/:id", h.DeleteLoan)
		group.GET("/loans/:id/installments", h.ListInstallments)
		group.GET("/loans/by-number/:number", h.GetLoanByNumber)
		group.POST("/schedule/preview", h.PreviewSchedule)
	}
}

// TermsRequest carries loan terms in request payloads
type TermsRequest struct {
	Amount        float64 `json:"amount" binding:"required,gt=0"`
	InterestRate  float64 `json:"interest_rate" binding:"gte=0"`
	TermMonths    int     `json:"term_months" binding:"required,gt=0"`
	ProcessingFee float64 `json:"processing_fee" binding:"gte=0"`
	ServiceFee    float64 `json:"service_fee" binding:"gte=0"`
}

func (r TermsRequest) toDomain() lending.Terms {
	return lending.Terms{
		Amount:        toDecimal(r.Amount),
		InterestRate:  toDecimal(r.InterestRate),
		TermMonths:    r.TermMonths,
		ProcessingFee: toDecimal(r.ProcessingFee),
		ServiceFee:    toDecimal(r.ServiceFee),
	}
}

// CollateralRequest carries the pledged property details
type CollateralRequest struct {
	PropertyType   string  `json:"property_type" binding:"max=50"`
	TitleNumber    string  `json:"title_number" binding:"max=100"`
	Location       string  `json:"location" binding:"max=300"`
	AreaSqm        float64 `json:"area_sqm" binding:"gte=0"`
	AppraisedValue float64 `json:"appraised_value" binding:"gte=0"`
}

func (r CollateralRequest) toDomain() lending.Collateral {
	return lending.Collateral{
		PropertyType:   r.PropertyType,
		TitleNumber:    r.TitleNumber,
		Location:       r.Location,
		AreaSqm:        toDecimal(r.AreaSqm),
		AppraisedValue: toDecimal(r.AppraisedValue),
	}
}

// CreateApplicationRequest is the payload for a new loan application
type CreateApplicationRequest struct {
	BorrowerName    string            `json:"borrower_name" binding:"required,min=1,max=200"`
	BorrowerContact string            `json:"borrower_contact" binding:"max=100"`
	AgentName       string            `json:"agent_name" binding:"max=200"`
	Terms           TermsRequest      `json:"terms" binding:"required"`
	Collateral      CollateralRequest `json:"collateral"`
}

// CreateApplication handles POST /lending/applications
func (h *LendingHandler) CreateApplication(c *gin.Context) {
	var req CreateApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	app, err := h.service.CreateApplication(c.Request.Context(), lendingapp.CreateApplicationRequest{
		BorrowerName:    req.BorrowerName,
		BorrowerContact: req.BorrowerContact,
		AgentName:       req.AgentName,
		Terms:           req.Terms.toDomain(),
		Collateral:      req.Collateral.toDomain(),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, app)
}

// GetApplication handles GET /lending/applications/:id
func (h *LendingHandler) GetApplication(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid application ID")
		return
	}

	app, err := h.service.GetApplication(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, app)
}

// ListApplications handles GET /lending/applications
func (h *LendingHandler) ListApplications(c *gin.Context) {
	req := dto.DefaultListRequest()
	if err := c.ShouldBindQuery(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	filter := lending.DefaultApplicationFilter()
	filter.Page = req.Page
	filter.PageSize = req.PageSize
	filter.OrderBy = req.OrderBy
	filter.OrderDir = req.OrderDir
	filter.Search = req.Search
	if status := c.Query("status"); status != "" {
		s := lending.ApplicationStatus(status)
		filter.Status = &s
	}

	page, err := h.service.ListApplications(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, page.Items, page.Total, filter.Page, filter.PageSize)
}

// SubmitForReview handles POST /lending/applications/:id/submit
func (h *LendingHandler) SubmitForReview(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid application ID")
		return
	}

	app, err := h.service.SubmitForReview(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, app)
}

// ApproveRequest is the payload for an approval
type ApproveRequest struct {
	FundingAccountID string   `json:"funding_account_id" binding:"required,uuid"`
	Mode             string   `json:"mode" binding:"required,oneof=AMORTIZING FLAT_INTEREST_ONLY"`
	ReviewNotes      string   `json:"review_notes" binding:"max=1000"`
	Amount           *float64 `json:"amount" binding:"omitempty,gt=0"`
	InterestRate     *float64 `json:"interest_rate" binding:"omitempty,gte=0"`
	TermMonths       *int     `json:"term_months" binding:"omitempty,gt=0"`
	ProcessingFee    *float64 `json:"processing_fee" binding:"omitempty,gte=0"`
	ServiceFee       *float64 `json:"service_fee" binding:"omitempty,gte=0"`
}

func (r ApproveRequest) override() lending.TermsOverride {
	var o lending.TermsOverride
	if r.Amount != nil {
		o.Amount = toDecimalPtr(*r.Amount)
	}
	if r.InterestRate != nil {
		o.InterestRate = toDecimalPtr(*r.InterestRate)
	}
	if r.TermMonths != nil {
		o.TermMonths = r.TermMonths
	}
	if r.ProcessingFee != nil {
		o.ProcessingFee = toDecimalPtr(*r.ProcessingFee)
	}
	if r.ServiceFee != nil {
		o.ServiceFee = toDecimalPtr(*r.ServiceFee)
	}
	return o
}

// ApproveResponse describes a committed approval
type ApproveResponse struct {
	Application *lending.LoanApplication `json:"application"`
	Loan        *lending.Loan            `json:"loan"`
	Schedule    lending.Schedule         `json:"schedule"`
}

// Approve handles POST /lending/applications/:id/approve
func (h *LendingHandler) Approve(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid application ID")
		return
	}

	actor, err := getActor(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	var req ApproveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	fundingAccountID, _ := uuid.Parse(req.FundingAccountID)
	result, err := h.service.Approve(c.Request.Context(), lendingapp.ApproveRequest{
		ApplicationID:    id,
		FundingAccountID: fundingAccountID,
		Override:         req.override(),
		Mode:             lending.AmortizationMode(req.Mode),
		ReviewNotes:      req.ReviewNotes,
		Actor:            actor,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, ApproveResponse{
		Application: result.Application,
		Loan:        result.Loan,
		Schedule:    result.Schedule,
	})
}

// RejectRequest is the payload for a rejection
type RejectRequest struct {
	ReviewNotes string `json:"review_notes" binding:"max=1000"`
}

// Reject handles POST /lending/applications/:id/reject
func (h *LendingHandler) Reject(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid application ID")
		return
	}

	actor, err := getActor(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	var req RejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	app, err := h.service.Reject(c.Request.Context(), id, req.ReviewNotes, actor)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, app)
}

// AttachCollateralImage handles POST /lending/applications/:id/collateral-image.
// The image is read from the multipart "image" field.
func (h *LendingHandler) AttachCollateralImage(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid application ID")
		return
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		h.BadRequest(c, "Image file is required")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.BadRequest(c, "Failed to read image file")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.InternalError(c, "Failed to read image file")
		return
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	app, err := h.service.AttachCollateralImage(c.Request.Context(), id, data, contentType)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, app)
}

// GetLoan handles GET /lending/loans/:id
func (h *LendingHandler) GetLoan(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid loan ID")
		return
	}

	loan, err := h.service.GetLoan(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, loan)
}

// GetLoanByNumber handles GET /lending/loans/by-number/:number
func (h *LendingHandler) GetLoanByNumber(c *gin.Context) {
	loan, err := h.service.GetLoanByNumber(c.Request.Context(), c.Param("number"))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, loan)
}

// ListLoans handles GET /lending/loans
func (h *LendingHandler) ListLoans(c *gin.Context) {
	req := dto.DefaultListRequest()
	if err := c.ShouldBindQuery(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	filter := lending.DefaultLoanFilter()
	filter.Page = req.Page
	filter.PageSize = req.PageSize
	filter.OrderBy = req.OrderBy
	filter.OrderDir = req.OrderDir
	filter.Search = req.Search
	if status := c.Query("status"); status != "" {
		s := lending.LoanStatus(status)
		filter.Status = &s
	}

	page, err := h.service.ListLoans(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, page.Items, page.Total, filter.Page, filter.PageSize)
}

// UpdateLoan handles PUT /lending/loans/:id
func (h *LendingHandler) UpdateLoan(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid loan ID")
		return
	}

	actor, err := getActor(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	var req TermsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	loan, err := h.service.UpdateLoan(c.Request.Context(), id, req.toDomain(), actor)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, loan)
}

// DeleteLoan handles DELETE /lending/loans/:id
func (h *LendingHandler) DeleteLoan(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid loan ID")
		return
	}

	if err := h.service.DeleteLoan(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// ListInstallments handles GET /lending/loans/:id/installments
func (h *LendingHandler) ListInstallments(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid loan ID")
		return
	}

	installments, err := h.service.ListInstallments(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, installments)
}

// PreviewScheduleRequest is the payload for a schedule preview
type PreviewScheduleRequest struct {
	Amount       float64 `json:"amount" binding:"required,gt=0"`
	InterestRate float64 `json:"interest_rate" binding:"gte=0"`
	TermMonths   int     `json:"term_months" binding:"required,gt=0"`
	ContractDate string  `json:"contract_date" binding:"omitempty,datetime=2006-01-02"`
	Mode         string  `json:"mode" binding:"required,oneof=AMORTIZING FLAT_INTEREST_ONLY"`
}

// PreviewSchedule handles POST /lending/schedule/preview
func (h *LendingHandler) PreviewSchedule(c *gin.Context) {
	var req PreviewScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	contractDate := time.Now()
	if req.ContractDate != "" {
		contractDate, _ = time.Parse("2006-01-02", req.ContractDate)
	}

	schedule, err := h.service.PreviewSchedule(c.Request.Context(),
		toDecimal(req.Amount), toDecimal(req.InterestRate), req.TermMonths,
		contractDate, lending.AmortizationMode(req.Mode))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, schedule)
}
