package transport

import (
	"github.com/Skotchmaster/blog_api/internal/models"
	"github.com/Skotchmaster/blog_api/internal/service"
)

type RegisterRequest struct {
	Email    string `json:"email"    validate:"required,email,max=50"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role"     validate:"omitempty,oneof=admin user"`
}

type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email,max=50"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest may be empty when the token comes from the cookie.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type UpdateUserRequest struct {
	Username  *string `json:"username"  validate:"omitempty,min=3,max=20"`
	Email     *string `json:"email"     validate:"omitempty,email,max=50"`
	Password  *string `json:"password"  validate:"omitempty,min=8"`
	FirstName *string `json:"firstName" validate:"omitempty,max=20"`
	LastName  *string `json:"lastName"  validate:"omitempty,max=20"`
}

func (r UpdateUserRequest) Input() service.UpdateUserInput {
	return service.UpdateUserInput{
		Username:  r.Username,
		Email:     r.Email,
		Password:  r.Password,
		FirstName: r.FirstName,
		LastName:  r.LastName,
	}
}

type BannerRequest struct {
	PublicID string `json:"publicId"`
	URL      string `json:"url"    validate:"omitempty,url"`
	Width    int    `json:"width"  validate:"gte=0"`
	Height   int    `json:"height" validate:"gte=0"`
}

func (b *BannerRequest) model() *models.Banner {
	if b == nil {
		return nil
	}
	return &models.Banner{PublicID: b.PublicID, URL: b.URL, Width: b.Width, Height: b.Height}
}

type CreateBlogRequest struct {
	Title   string         `json:"title"   validate:"required,max=180"`
	Content string         `json:"content" validate:"required"`
	Status  string         `json:"status"  validate:"omitempty,oneof=draft published"`
	Banner  *BannerRequest `json:"banner"`
}

func (r CreateBlogRequest) Input() service.CreateBlogInput {
	in := service.CreateBlogInput{Title: r.Title, Content: r.Content, Status: r.Status}
	if b := r.Banner.model(); b != nil {
		in.Banner = *b
	}
	return in
}

type UpdateBlogRequest struct {
	Title   *string        `json:"title"   validate:"omitempty,max=180"`
	Content *string        `json:"content" validate:"omitempty"`
	Status  *string        `json:"status"  validate:"omitempty,oneof=draft published"`
	Banner  *BannerRequest `json:"banner"`
}

func (r UpdateBlogRequest) Input() service.UpdateBlogInput {
	return service.UpdateBlogInput{Title: r.Title, Content: r.Content, Status: r.Status, Banner: r.Banner.model()}
}

type CommentRequest struct {
	Content string `json:"content" validate:"required,max=1000"`
}

type AuthResponse struct {
	User         *models.User `json:"user"`
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
}

type TokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type UserResponse struct {
	User *models.User `json:"user"`
}

type UsersPage struct {
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
	Total  int64         `json:"total"`
	Users  []models.User `json:"users"`
}

type BlogResponse struct {
	Blog *models.Blog `json:"blog"`
}

type BlogsPage struct {
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
	Total  int64         `json:"total"`
	Blogs  []models.Blog `json:"blogs"`
}

func PageOf(p *service.BlogPage) BlogsPage {
	blogs := p.Blogs
	if blogs == nil {
		blogs = []models.Blog{}
	}
	return BlogsPage{Limit: p.Limit, Offset: p.Offset, Total: p.Total, Blogs: blogs}
}

type LikeResponse struct {
	LikesCount int `json:"likesCount"`
}

type CommentResponse struct {
	Comment *models.Comment `json:"comment"`
}

type CommentsResponse struct {
	Comments []models.Comment `json:"comments"`
}

type ErrorResponse struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors,omitempty"`
}
