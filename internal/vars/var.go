package vars

var (
	AcceptAll         = "*/*"
	AcceptHtml        = "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8"
	AcceptStream      = "text/event-stream"
	AcceptEncoding    = "gzip, deflate, br, zstd"
	AcceptLanguage    = "zh-CN,zh;q=0.9,en;q=0.8"
	ContentType       = "application/x-www-form-urlencoded"
	ContentTypeForm   = "application/x-www-form-urlencoded;charset=UTF-8"
	ContentTypeJSON   = "application/json"
	ContentTypeHtml   = "text/html; charset=utf-8"
	ContentTypeStream = "text/event-stream; charset=utf-8"
	UserAgent         = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"
)
