package models

import (
	"time"

	"github.com/dgrijalva/jwt-go"
)

// User roles on the platform.
const (
	RoleCustomer   = "customer"
	RoleTranslator = "translator"
	RoleAdmin      = "admin"
	RoleSuperAdmin = "superadmin"
)

// Translator kinds, derived from the job type during matching.
const (
	TranslatorProfessional = "professional"
	TranslatorRWS          = "rwstranslator"
	TranslatorVolunteer    = "volunteer"
)

// Translator qualification levels.
const (
	LevelCertified       = "certified"
	LevelCertifiedLaw    = "certified_with_specialisation_in_law"
	LevelCertifiedHealth = "certified_with_specialisation_in_health_care"
	LevelLayman          = "layman"
	LevelReadCourses     = "read_translation_courses"
)

type User struct {
	ID        int        `json:"id"`
	UserType  string     `json:"user_type"`
	Name      string     `json:"name"`
	Email     string     `json:"email,omitempty"`
	Phone     string     `json:"phone,omitempty"`
	Password  string     `json:"password,omitempty"`
	Status    string     `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`

	Meta      *UserMeta `json:"meta,omitempty"`
	Languages []int     `json:"languages,omitempty"`
}

type UserMeta struct {
	UserID             int    `json:"user_id"`
	ConsumerType       string `json:"consumer_type"`
	CustomerType       string `json:"customer_type,omitempty"`
	City               string `json:"city"`
	Gender             string `json:"gender,omitempty"`
	TranslatorType     string `json:"translator_type,omitempty"`
	TranslatorLevel    string `json:"translator_level,omitempty"`
	CertificateDocPath string `json:"certificate_doc_path,omitempty"`
	NotGetNotification bool   `json:"not_get_notification"`
	NotGetNighttime    bool   `json:"not_get_nighttime"`
	NotGetEmergency    bool   `json:"not_get_emergency"`
}

type UserLanguage struct {
	UserID int `json:"user_id"`
	LangID int `json:"lang_id"`
}

type UsersBlacklist struct {
	UserID       int `json:"user_id"`
	TranslatorID int `json:"translator_id"`
}

type Claims struct {
	UserID int    `json:"user_id"`
	Role   string `json:"role"`
	jwt.StandardClaims
}

type Tokens struct {
	AccessToken  string
	RefreshToken string
}

type Session struct {
	UserID       int       `json:"user_id"`
	Role         string    `json:"role"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
