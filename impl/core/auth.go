package core

import (
	"log/slog"
	"time"

	"qiming/entity"
	"qiming/lib/apperr"
	"qiming/lib/mask"
	"qiming/lib/sl"
)

// ValidateCode activates an authorization code for one device and issues the
// token. The code itself becomes the user identity. The UNUSED -> USED
// transition is a conditional update in the store, so concurrent activations
// of the same code cannot both pass.
func (c *Core) ValidateCode(code, deviceId, clientIp string) (*entity.TokenResult, error) {
	log := c.log.With(
		slog.String("code", mask.Code(code)),
		slog.String("device", mask.DeviceId(deviceId)),
	)

	if !entity.ValidCodeFormat(code) {
		return nil, apperr.CodeFormatInvalid()
	}

	record, err := c.db.GetCode(code)
	if err != nil {
		log.Error("code lookup failed", sl.Err(err))
		return nil, apperr.Database()
	}
	if record == nil {
		return nil, apperr.CodeNotFound()
	}
	if record.Status == entity.CodeUsed {
		return nil, apperr.CodeAlreadyUsed()
	}
	if record.IsExpired(time.Now().UTC()) {
		// persist the lapse so later reads skip the date math
		if err = c.db.UpdateCodeStatus(code, entity.CodeExpired); err != nil {
			log.Error("status update failed", sl.Err(err))
		}
		return nil, apperr.CodeExpired()
	}

	activated, err := c.db.ActivateCode(code, deviceId, clientIp)
	if err != nil {
		log.Error("activation failed", sl.Err(err))
		return nil, apperr.Database()
	}
	if activated == nil {
		// lost the race against a concurrent activation
		return nil, apperr.CodeAlreadyUsed()
	}

	token, err := c.tokens.Issue(code, deviceId, code)
	if err != nil {
		log.Error("token issue failed", sl.Err(err))
		return nil, apperr.InvalidToken("Token生成失败")
	}

	log.Info("code activated", slog.String("ip", mask.Ip(clientIp)))
	return &entity.TokenResult{
		Token:     token,
		Recovered: false,
		Message:   "激活成功",
	}, nil
}

// RecoverToken reissues a token for an already activated code when the
// supplied device matches the one bound at activation. A code that exists
// but was never activated reads as not found on purpose.
func (c *Core) RecoverToken(code, deviceId string) (*entity.TokenResult, error) {
	log := c.log.With(
		slog.String("code", mask.Code(code)),
		slog.String("device", mask.DeviceId(deviceId)),
	)

	if !entity.ValidCodeFormat(code) {
		return nil, apperr.CodeFormatInvalid()
	}

	record, err := c.db.GetCode(code)
	if err != nil {
		log.Error("code lookup failed", sl.Err(err))
		return nil, apperr.Database()
	}
	if record == nil || record.Status != entity.CodeUsed {
		return nil, apperr.CodeNotFound()
	}
	if record.DeviceId != deviceId {
		log.Warn("device mismatch on recovery",
			slog.String("expected", mask.DeviceId(record.DeviceId)))
		return nil, apperr.DeviceMismatch()
	}

	token, err := c.tokens.Issue(code, deviceId, code)
	if err != nil {
		log.Error("token issue failed", sl.Err(err))
		return nil, apperr.InvalidToken("Token生成失败")
	}

	log.Info("token recovered")
	return &entity.TokenResult{
		Token:     token,
		Recovered: true,
		Message:   "Token恢复成功",
	}, nil
}

// AuthStatus is the read-only activation projection for one identity.
func (c *Core) AuthStatus(userId string) (*entity.AuthStatus, error) {
	record, err := c.db.GetCode(userId)
	if err != nil {
		c.log.Error("status lookup failed", sl.Err(err), sl.User(mask.Code(userId)))
		return nil, apperr.Database()
	}
	if record == nil || record.Status != entity.CodeUsed {
		return &entity.AuthStatus{Activated: false}, nil
	}
	return &entity.AuthStatus{
		Activated:   true,
		Code:        mask.Code(record.Code),
		DeviceId:    record.DeviceId,
		ActivatedAt: record.ActivatedAt,
	}, nil
}

func (c *Core) VerifyToken(token string) (*entity.Identity, error) {
	return c.tokens.Verify(token)
}
