package middleware

import (
	"strings"

	"github.com/golang-jwt/jwt/v4"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

// OperatorHeader carries the authenticated operator id to handlers.
const OperatorHeader = "X-Operator-ID"

// JWTAuth guards the admin API with HS256 bearer tokens. The operator id is
// taken from the user_id claim, falling back to sub.
func JWTAuth(secret string, logger *zap.Logger) func(fasthttp.RequestHandler) fasthttp.RequestHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			ctx.Request.Header.Del(OperatorHeader)
			if secret == "" {
				logger.Warn("admin api disabled: JWT_SECRET not set")
				ctx.SetStatusCode(fasthttp.StatusUnauthorized)
				return
			}

			tokenString := extractToken(ctx)
			if tokenString == "" {
				ctx.SetStatusCode(fasthttp.StatusUnauthorized)
				return
			}

			claims := jwt.MapClaims{}
			token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				logger.Warn("invalid jwt token", zap.Error(err))
				ctx.SetStatusCode(fasthttp.StatusUnauthorized)
				return
			}

			operator, _ := claims["user_id"].(string)
			if operator == "" {
				operator, _ = claims["sub"].(string)
			}
			if operator == "" {
				ctx.SetStatusCode(fasthttp.StatusUnauthorized)
				return
			}
			ctx.Request.Header.Set(OperatorHeader, operator)

			next(ctx)
		}
	}
}

func extractToken(ctx *fasthttp.RequestCtx) string {
	header := string(ctx.Request.Header.Peek("Authorization"))
	if header == "" {
		return ""
	}
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return header
}
