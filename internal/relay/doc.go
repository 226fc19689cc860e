// Package relay はオリジンへのリクエスト中継とCloudflareキャッシュパージを行うリレーの実装を提供する。
//
// 受信したリクエストをそのままオリジンに転送し、オリジンが2xxを返した場合のみ
// 設定されたURLプレフィックスのキャッシュをパージする。パージの成否はレスポンスに反映される。
//
//   - パージ成功: オリジンのレスポンスに X-Cache-Purge-Triggered: true を付与して返す
//   - パージ失敗: オリジンのボディから robot_id と live_paused を抜き出し、500のJSONを返す
//   - オリジンが2xx以外: 何も加工せずそのまま返す
//
// パージの失敗は呼び出し元にエラーとして伝播せず、必ず整形されたレスポンスに変換される。
package relay
