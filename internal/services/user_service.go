package services

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"tolkBack/internal/models"
	"tolkBack/internal/repositories"
	"tolkBack/utils"
)

const (
	accessTokenTTL  = 120 * time.Minute
	refreshTokenTTL = 24 * 30 * 2 * time.Hour
)

// UserService handles accounts, sign-in and sessions for customers,
// translators and admins.
type UserService struct {
	UserRepo     *repositories.UserRepository
	TokenManager *utils.Manager
	Storage      *utils.S3Storage
	SigningKey   string
}

// SignUp registers a new account with a bcrypt-hashed password.
func (s *UserService) SignUp(ctx context.Context, user models.User) (models.User, error) {
	existing, err := s.UserRepo.GetUserByEmail(ctx, user.Email)
	if err != nil {
		return models.User{}, err
	}
	if existing.Email != "" {
		return models.User{}, models.ErrDuplicateEmail
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(user.Password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, err
	}
	user.Password = string(hashedPassword)
	if user.Status == "" {
		user.Status = "active"
	}

	created, err := s.UserRepo.CreateUser(ctx, user)
	if err != nil {
		return models.User{}, err
	}
	created.Password = ""
	return created, nil
}

// SignIn checks the credentials and issues an access/refresh token pair.
func (s *UserService) SignIn(ctx context.Context, email, password string) (models.Tokens, models.User, error) {
	user, err := s.UserRepo.GetUserByEmail(ctx, email)
	if err != nil {
		return models.Tokens{}, models.User{}, err
	}
	if user.Email == "" {
		log.Printf("User not found: %s", email)
		return models.Tokens{}, models.User{}, models.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		log.Printf("Invalid password for user: %s", email)
		return models.Tokens{}, models.User{}, models.ErrInvalidCredentials
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &models.Claims{
		StandardClaims: jwt.StandardClaims{
			ExpiresAt: time.Now().Add(accessTokenTTL).Unix(),
			IssuedAt:  time.Now().Unix(),
			Subject:   strconv.Itoa(user.ID),
		},
		UserID: user.ID,
		Role:   user.UserType,
	})

	accessToken, err := token.SignedString([]byte(s.SigningKey))
	if err != nil {
		log.Printf("Error signing token: %v", err)
		return models.Tokens{}, models.User{}, err
	}

	tokens, err := s.CreateSession(ctx, user, accessToken)
	if err != nil {
		log.Printf("Error creating session: %v", err)
		return models.Tokens{}, models.User{}, err
	}
	user.Password = ""
	return tokens, user, nil
}

// CreateSession stores a refresh token for the user.
func (s *UserService) CreateSession(ctx context.Context, user models.User, accessToken string) (models.Tokens, error) {
	var (
		res models.Tokens
		err error
	)

	res.AccessToken = accessToken

	res.RefreshToken = uuid.New().String()
	if s.TokenManager != nil {
		res.RefreshToken, err = s.TokenManager.NewRefreshToken()
		if err != nil {
			return res, err
		}
	}

	session := models.Session{
		UserID:       user.ID,
		Role:         user.UserType,
		RefreshToken: res.RefreshToken,
		ExpiresAt:    time.Now().Add(refreshTokenTTL),
	}

	if err := s.UserRepo.SaveSession(ctx, session); err != nil {
		return res, err
	}

	return res, nil
}

// RefreshSession trades a live refresh token for a fresh token pair.
func (s *UserService) RefreshSession(ctx context.Context, refreshToken string) (models.Tokens, error) {
	session, err := s.UserRepo.GetSessionByToken(ctx, refreshToken)
	if err != nil {
		return models.Tokens{}, err
	}
	if session.ExpiresAt.Before(time.Now()) {
		return models.Tokens{}, models.ErrInvalidCredentials
	}

	user, err := s.UserRepo.GetUserByID(ctx, session.UserID)
	if err != nil {
		return models.Tokens{}, err
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &models.Claims{
		StandardClaims: jwt.StandardClaims{
			ExpiresAt: time.Now().Add(accessTokenTTL).Unix(),
			IssuedAt:  time.Now().Unix(),
			Subject:   strconv.Itoa(user.ID),
		},
		UserID: user.ID,
		Role:   user.UserType,
	})
	accessToken, err := token.SignedString([]byte(s.SigningKey))
	if err != nil {
		return models.Tokens{}, err
	}
	return s.CreateSession(ctx, user, accessToken)
}

func (s *UserService) GetUserByID(ctx context.Context, id int) (models.User, error) {
	user, err := s.UserRepo.GetUserByID(ctx, id)
	if err != nil {
		return models.User{}, err
	}
	user.Password = ""
	if meta, err := s.UserRepo.MetaByUserID(ctx, id); err == nil {
		user.Meta = &meta
	}
	if langs, err := s.UserRepo.LanguagesByUserID(ctx, id); err == nil {
		user.Languages = langs
	}
	return user, nil
}

// UploadCertificate stores a translator's certificate document and records
// its URL on the profile.
func (s *UserService) UploadCertificate(ctx context.Context, userID int, file []byte, fileName string) (string, error) {
	name := fmt.Sprintf("%d_%s", userID, fileName)
	url, err := s.Storage.UploadFile(file, name, "certificates", "application/pdf")
	if err != nil {
		return "", err
	}
	if err := s.UserRepo.UpdateCertificateDoc(ctx, userID, url); err != nil {
		return "", err
	}
	return url, nil
}

// CleanExpiredSessions is called by the background sweeper.
func (s *UserService) CleanExpiredSessions(ctx context.Context) error {
	return s.UserRepo.DeleteExpiredSessions(ctx, time.Now())
}
