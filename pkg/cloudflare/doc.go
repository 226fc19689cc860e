// Package cloudflare はCloudflare APIのキャッシュパージを呼び出すクライアントを提供する。
//
// 認証情報とゾーンIDは生成時に注入する。認証方式はグローバルAPIキー
// （X-Auth-Email / X-Auth-Key）とAPIトークン（Authorization: Bearer）の両方に対応する。
package cloudflare
