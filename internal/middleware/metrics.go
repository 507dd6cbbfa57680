package middleware

import "net/http"

// NewMetricsMiddleware はレスポンスのステータスコードを記録するミドルウェアを返す。
// recordStatusにはmetrics.MetricsCollectorのRecordHTTPStatusを渡す。
// コレクタ型に直接依存しないことで、テストでは関数1つで差し替えられる。
func NewMetricsMiddleware(recordStatus func(statusCode int)) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &statusRecorder{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}
			next.ServeHTTP(rec, r)
			recordStatus(rec.statusCode)
		})
	}
}
