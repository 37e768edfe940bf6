package echoapi

import (
	"net/http"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/aryaedu/tutor/core"
	"github.com/aryaedu/tutor/core/auth"
	"github.com/aryaedu/tutor/core/session"
)

var (
	contextTokenKey   = "sessionToken"
	contextSessionKey = "session"

	nowFunc = time.Now // mockable
)

// Claims represents the claims transmitted via a JWT. The token id is the session id.
type Claims struct {
	jwt.StandardClaims
}

func newJWTConfig(conf *core.Config) middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    []byte(conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    contextTokenKey,
		Claims:        new(Claims),
	}
}

func newSessionClaims(conf *core.Config, sess session.Session) *Claims {
	now := nowFunc()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Id:        sess.ID,
			Issuer:    conf.AppName,
			ExpiresAt: now.Add(conf.Server.TokenExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
	}
}

// generateToken signs the claims with the server key.
func (s *Server) generateToken(claims *Claims) (string, error) {
	method := jwt.GetSigningMethod(s.jwtConf.SigningMethod)
	token := jwt.NewWithClaims(method, claims)

	ss, err := token.SignedString(s.jwtConf.SigningKey)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

// sessionToken issues a token naming sess, valid for TokenExpirationDelta from now.
func (s *Server) sessionToken(sess session.Session) (string, error) {
	return s.generateToken(newSessionClaims(s.opts.Conf, sess))
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(contextTokenKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

func getContextSession(ctx echo.Context) (*session.Session, error) {
	if sess, ok := ctx.Get(contextSessionKey).(*session.Session); ok {
		return sess, nil
	}
	return nil, errUnauthorized
}

func getContextIdentity(ctx echo.Context) (auth.Identity, error) {
	sess, err := getContextSession(ctx)
	if err != nil {
		return auth.Identity{}, err
	}
	if sess.Identity == nil {
		return auth.Identity{}, errUnauthorized
	}
	return *sess.Identity, nil
}

func (s *Server) newSession(ctx echo.Context) error {
	now := nowFunc().UTC()
	if n := s.opts.Sessions.Sweep(now); n > 0 {
		s.opts.Logger.Debug("swept idle sessions", map[string]interface{}{"count": n})
	}

	sess := s.opts.Sessions.New()
	token, err := s.sessionToken(sess)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusCreated, SessionResponse{Token: token, Screen: sess.Screen})
}

// sessionMiddleware loads the session named by the token and stores it back once the handler returns,
// whether it failed or not.
func (s *Server) sessionMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		claims, err := getContextClaims(ctx)
		if err != nil {
			return errors.Wrap(err, "getting context claims")
		}
		sess, ok := s.opts.Sessions.Get(claims.Id)
		if !ok {
			return errSessionNotFound
		}

		ctx.Set(contextSessionKey, &sess)
		err = next(ctx)
		s.opts.Sessions.Save(sess)
		return err
	}
}

// roleMiddleware admits the request when the session is authenticated with role and has not expired.
func (s *Server) roleMiddleware(role auth.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			sess, err := getContextSession(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context session")
			}
			switch s.opts.Router.Admit(sess, role, nowFunc().UTC()) {
			case session.OutcomeOK:
				return next(ctx)
			case session.OutcomeExpired:
				return errSessionExpired
			default:
				return errHttpForbidden
			}
		}
	}
}
