package models

type ErrorResponse struct {
	Error   string `json:"error" example:"Invalid input"`
	Details string `json:"details,omitempty" example:""`
}

// LoginRequest is used in @Param for login body
type LoginRequest struct {
	Email    string `json:"email" binding:"required" example:"user@example.com"`
	Password string `json:"password" binding:"required" example:"password"`
	IP       string `json:"ip" example:"192.168.1.1"`
}

// LoginResponse is used in @Success for login
type LoginResponse struct {
	Message     string    `json:"message" example:"User successfully logged in"`
	AccessToken string    `json:"access_token" example:"eyJhbGc..."`
	Role        string    `json:"role" example:"admin"`
	User        LoginUser `json:"user"`
}

// LoginUser is the user object inside LoginResponse
type LoginUser struct {
	ID    int    `json:"id" example:"1"`
	Email string `json:"email" example:"user@example.com"`
}

// SuccessResponse is used in @Success for generic success
type SuccessResponse struct {
	Message string      `json:"message" example:"Success"`
	Data    interface{} `json:"data,omitempty"`
}

// ValidateSessionResponse is used in @Success for validate session (swagger)
type ValidateSessionResponse struct {
	Valid bool   `json:"valid" example:"true"`
	Email string `json:"email,omitempty"`
}

// ProjectStatusResponse is used in @Success for the project status endpoint
type ProjectStatusResponse struct {
	ProjectID     int    `json:"project_id" example:"1"`
	ProjectStatus string `json:"project_status" example:"costing"`
	CostingStatus string `json:"costing_status" example:"draft"`
}

// NotificationListResponse wraps a user's notifications
type NotificationListResponse struct {
	Success bool           `json:"success" example:"true"`
	Message string         `json:"message" example:"Success"`
	Data    []Notification `json:"data"`
	Error   string         `json:"error,omitempty" example:""`
}

// ActivityLogListResponse wraps a page of activity logs
type ActivityLogListResponse struct {
	Success bool          `json:"success" example:"true"`
	Message string        `json:"message" example:"Success"`
	Data    []ActivityLog `json:"data"`
	Total   int           `json:"total" example:"120"`
	Page    int           `json:"page" example:"1"`
	Limit   int           `json:"limit" example:"50"`
	Error   string        `json:"error,omitempty" example:""`
}
