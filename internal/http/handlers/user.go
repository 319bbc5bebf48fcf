package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/coursehub-backend/internal/http/response"
	"github.com/yungbote/coursehub-backend/internal/platform/pagination"
	"github.com/yungbote/coursehub-backend/internal/services"
)

type UserHandler struct {
	userService services.UserService
	pages       pagination.Params
}

func NewUserHandler(userService services.UserService) *UserHandler {
	return &UserHandler{userService: userService, pages: pagination.Users}
}

type userUpdateRequest struct {
	Email     *string `json:"email" binding:"omitempty,email"`
	Password  *string `json:"password" binding:"omitempty,min=1"`
	FirstName *string `json:"first_name" binding:"omitempty,max=150"`
	LastName  *string `json:"last_name" binding:"omitempty,max=150"`
	Phone     *string `json:"phone" binding:"omitempty,max=35"`
	City      *string `json:"city" binding:"omitempty,max=100"`
	Avatar    *string `json:"avatar"`
	AvatarURL *string `json:"avatar_url"`
}

// GET /me
func (uh *UserHandler) GetMe(c *gin.Context) {
	me, err := uh.userService.GetMe(dbcOf(c))
	if err != nil {
		response.RespondAPIError(c, err, "me_failed")
		return
	}
	response.RespondOK(c, me)
}

// GET /users
func (uh *UserHandler) List(c *gin.Context) {
	pg, ok := pageOf(c, uh.pages)
	if !ok {
		return
	}
	rows, count, err := uh.userService.List(dbcOf(c), pg)
	if err != nil {
		response.RespondAPIError(c, err, "list_users_failed")
		return
	}
	respondPage(c, pg, count, rows)
}

// GET /users/:id
func (uh *UserHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	u, err := uh.userService.Get(dbcOf(c), id)
	if err != nil {
		response.RespondAPIError(c, err, "get_user_failed")
		return
	}
	response.RespondOK(c, u)
}

// PUT|PATCH /users/:id
func (uh *UserHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req userUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondBindError(c, err, nil)
		return
	}
	u, err := uh.userService.Update(dbcOf(c), id, services.UserUpdate{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		City:      req.City,
		AvatarURL: firstNonNil(req.AvatarURL, req.Avatar),
	})
	if err != nil {
		response.RespondAPIError(c, err, "update_user_failed")
		return
	}
	response.RespondOK(c, u)
}

// DELETE /users/:id
func (uh *UserHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := uh.userService.Delete(dbcOf(c), id); err != nil {
		response.RespondAPIError(c, err, "delete_user_failed")
		return
	}
	response.RespondNoContent(c)
}
