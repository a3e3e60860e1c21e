package helpers

import (
	"time"
	"unicode"

	"bitbucket.org/clinicops/backend/models"
	"github.com/dgrijalva/jwt-go"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

func ParserTokenUnverified(tokenStr string) (jwt.MapClaims, bool) {
	var p jwt.Parser
	token, _, err := p.ParseUnverified(tokenStr, jwt.MapClaims{})
	if err != nil {
		return nil, false
	}
	tokendata, _ := token.Claims.(jwt.MapClaims)
	return tokendata, true
}

func Contains(a []int, x int) bool {
	for _, n := range a {
		if x == n {
			return true
		}
	}
	return false
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), 14)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

func AuthenticateHashedPassword(hashed string, inputPassword string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hashed), []byte(inputPassword))
	return err == nil
}

func GenerateToken(user *models.User, jwtSecret string) (string, error) {
	var r []int
	for _, role := range user.Roles {
		r = append(r, role.ID)
	}
	claims := struct {
		User map[string]interface{} `json:"u"`
		jwt.StandardClaims
	}{
		map[string]interface{}{
			"r":         r,
			"i":         user.ID,
			"email":     user.Email,
			"lastName":  user.Lastname,
			"firstName": user.Firstname,
		},
		jwt.StandardClaims{
			IssuedAt: time.Now().Unix(),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(jwtSecret))
	if err != nil {
		return "", err
	}

	return token, nil
}

// RemoveAccents strips diacritics so names render safely in PDF templates.
func RemoveAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	output, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return output
}

// FormatAmount renders an amount with thousand separators for receipts.
func FormatAmount(amount int) string {
	p := message.NewPrinter(language.English)
	return p.Sprintf("%d", amount)
}
