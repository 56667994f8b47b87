// Package acquire implements the first pipeline stage: downloading the
// source reference's audio into the media directory through yt-dlp.
//
// Each attempt writes to a fresh UUID-named output template, so a retry never
// collides with a partial file left by an earlier attempt. The stage returns
// the media ID and final file location as a patch; it does not touch the
// record store.
package acquire
