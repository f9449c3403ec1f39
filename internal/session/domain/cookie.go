package domain

// CookieName is the HTTP cookie carrying the raw session token. The cookie is
// HTTP-only, SameSite=Lax, path /, and Secure in production.
const CookieName = "am_session"
