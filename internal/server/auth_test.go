package server

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"testing"
	"time"
)

const testBotToken = "12345:test-token"

// signInitData builds a Mini App init-data string the way Telegram does.
func signInitData(botToken string, params url.Values) string {
	pairs := make([]string, 0, len(params))
	for key := range params {
		pairs = append(pairs, key+"="+params.Get(key))
	}
	sort.Strings(pairs)

	secret := hmac.New(sha256.New, []byte("WebAppData"))
	secret.Write([]byte(botToken))
	mac := hmac.New(sha256.New, secret.Sum(nil))
	mac.Write([]byte(strings.Join(pairs, "\n")))
	params.Set("hash", hex.EncodeToString(mac.Sum(nil)))
	return params.Encode()
}

func validParams(now time.Time) url.Values {
	return url.Values{
		"user":      {`{"id":7,"first_name":"Test"}`},
		"auth_date": {fmt.Sprintf("%d", now.Unix())},
		"query_id":  {"AAE"},
	}
}

func TestValidateInitDataAccepted(t *testing.T) {
	now := time.Date(2025, 1, 18, 12, 0, 0, 0, time.UTC)
	initData := signInitData(testBotToken, validParams(now))

	userID, err := ValidateInitData(initData, testBotToken, now.Add(time.Hour))
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if userID != 7 {
		t.Fatalf("user id = %d, want 7", userID)
	}
}

func TestValidateInitDataTamperedUser(t *testing.T) {
	now := time.Date(2025, 1, 18, 12, 0, 0, 0, time.UTC)
	initData := signInitData(testBotToken, validParams(now))
	tampered := strings.Replace(initData, "%22id%22%3A7", "%22id%22%3A8", 1)
	if tampered == initData {
		t.Fatal("test setup: user id not found in encoded payload")
	}

	_, err := ValidateInitData(tampered, testBotToken, now)
	if !errors.Is(err, ErrInitDataInvalid) {
		t.Fatalf("err = %v, want ErrInitDataInvalid", err)
	}
}

func TestValidateInitDataWrongToken(t *testing.T) {
	now := time.Date(2025, 1, 18, 12, 0, 0, 0, time.UTC)
	initData := signInitData("54321:other-token", validParams(now))

	_, err := ValidateInitData(initData, testBotToken, now)
	if !errors.Is(err, ErrInitDataInvalid) {
		t.Fatalf("err = %v, want ErrInitDataInvalid", err)
	}
}

func TestValidateInitDataExpired(t *testing.T) {
	signed := time.Date(2025, 1, 18, 12, 0, 0, 0, time.UTC)
	initData := signInitData(testBotToken, validParams(signed))

	_, err := ValidateInitData(initData, testBotToken, signed.Add(25*time.Hour))
	if !errors.Is(err, ErrInitDataExpired) {
		t.Fatalf("err = %v, want ErrInitDataExpired", err)
	}
}

func TestValidateInitDataMissing(t *testing.T) {
	_, err := ValidateInitData("", testBotToken, time.Now())
	if !errors.Is(err, ErrInitDataMissing) {
		t.Fatalf("err = %v, want ErrInitDataMissing", err)
	}
}

func TestValidateInitDataMissingHash(t *testing.T) {
	params := validParams(time.Now())
	_, err := ValidateInitData(params.Encode(), testBotToken, time.Now())
	if !errors.Is(err, ErrInitDataInvalid) {
		t.Fatalf("err = %v, want ErrInitDataInvalid", err)
	}
}
