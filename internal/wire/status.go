package wire

var reasons = map[int]string{
	200: "OK",
	201: "Created",
	204: "No Content",
	301: "Moved Permanently",
	302: "Found",
	400: "Bad Request",
	404: "Not Found",
	405: "Method Not Allowed",
	500: "Internal Server Error",
}

// StatusText はステータスコードの理由句を返す。未知のコードは空文字列
func StatusText(code int) string {
	return reasons[code]
}
