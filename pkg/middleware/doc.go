// Package middleware はGinベースのHTTPサーバーで使用する共通ミドルウェアを提供する。
//
// 管理APIのJWT認証、リクエストIDの採番、構造化リクエストログ、
// パニックリカバリ、CORS設定を含む。
package middleware
