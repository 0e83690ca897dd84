package httpapi

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	initDataTTL     = 24 * time.Hour
	initDataMaxSkew = 5 * time.Minute
)

// TelegramUser: пользователь из initData Mini App.
type TelegramUser struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Language  string `json:"language_code"`
}

var errSignatureMismatch = errors.New("signature mismatch")

// ValidateInitData проверяет подпись initData и возвращает пользователя.
// now задаёт момент, относительно которого проверяется auth_date.
func ValidateInitData(initData string, botToken string, now time.Time) (TelegramUser, error) {
	if initData == "" {
		return TelegramUser{}, fmt.Errorf("initData is empty")
	}
	if botToken == "" {
		return TelegramUser{}, fmt.Errorf("botToken is empty")
	}

	// Прокси и браузеры иногда превращают "+" в пробел.
	inputs := []string{
		initData,
		strings.ReplaceAll(initData, " ", "+"),
		strings.ReplaceAll(initData, "%20", "+"),
	}
	// Ключ Mini App и старый ключ Login Widget.
	secrets := [][]byte{
		secretWebApp(botToken),
		secretLegacy(botToken),
	}

	var lastErr error
	for _, input := range inputs {
		for _, secret := range secrets {
			user, err := verifyAndParse(input, secret, now)
			if err == nil {
				return user, nil
			}
			lastErr = err
			// Подпись сошлась, но данные плохие: другие варианты не помогут.
			if !errors.Is(err, errSignatureMismatch) {
				return TelegramUser{}, err
			}
		}
	}
	return TelegramUser{}, fmt.Errorf("validation failed: %w", lastErr)
}

func verifyAndParse(initData string, secretKey []byte, now time.Time) (TelegramUser, error) {
	values, err := url.ParseQuery(initData)
	if err != nil {
		return TelegramUser{}, fmt.Errorf("parse query: %w", err)
	}

	receivedHash := values.Get("hash")
	if receivedHash == "" {
		return TelegramUser{}, fmt.Errorf("hash is missing")
	}
	values.Del("hash")

	h := hmac.New(sha256.New, secretKey)
	h.Write([]byte(dataCheckString(values)))
	calculated := hex.EncodeToString(h.Sum(nil))
	if !hmac.Equal([]byte(calculated), []byte(strings.ToLower(receivedHash))) {
		return TelegramUser{}, errSignatureMismatch
	}

	// Без auth_date срок жизни не проверить.
	raw := values.Get("auth_date")
	if raw == "" {
		return TelegramUser{}, fmt.Errorf("auth_date is missing")
	}
	ts, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return TelegramUser{}, fmt.Errorf("auth_date некорректен: %q", raw)
	}
	authTime := time.Unix(ts, 0)
	if now.Sub(authTime) > initDataTTL {
		return TelegramUser{}, fmt.Errorf("initData expired (older than %s)", initDataTTL)
	}
	if authTime.Sub(now) > initDataMaxSkew {
		return TelegramUser{}, fmt.Errorf("initData is from the future (check server time)")
	}

	return parseTelegramUser(values.Get("user"))
}

// dataCheckString склеивает пары key=value без hash по алфавиту через \n.
func dataCheckString(values url.Values) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+values.Get(k))
	}
	return strings.Join(parts, "\n")
}

func parseTelegramUser(raw string) (TelegramUser, error) {
	if raw == "" {
		return TelegramUser{}, fmt.Errorf("user field is empty")
	}
	var user TelegramUser
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return TelegramUser{}, fmt.Errorf("unmarshal user: %w", err)
	}
	if user.ID == 0 {
		return TelegramUser{}, fmt.Errorf("user id is 0")
	}
	return user, nil
}

func secretWebApp(token string) []byte {
	h := hmac.New(sha256.New, []byte("WebAppData"))
	h.Write([]byte(token))
	return h.Sum(nil)
}

func secretLegacy(token string) []byte {
	h := sha256.Sum256([]byte(token))
	return h[:]
}
