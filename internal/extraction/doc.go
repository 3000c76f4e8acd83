// Package extraction turns a user's raw input into (title, author) candidates.
//
// Text is wrapped in the configured instruction and sent to the model. Audio
// is transcribed first and then handled like text. Images go to the model's
// vision endpoint together with the image instruction. The model reply must
// be {"books":[...]} or a bare array of {title, author} objects; anything else
// is an upstream failure and nothing is queued.
package extraction
