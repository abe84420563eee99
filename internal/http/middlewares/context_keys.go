package middlewares

// keys used with gin.Context.Set / Get
const (
	CtxRequestID = "request_id"
	CtxClaims    = "auth.claims"
)
