package strategy

import (
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// blockedResourceTypes are resource classes that never carry product
// metadata. Blocking them speeds up settles and reduces the surface a
// bot detector can fingerprint. Documents, scripts and XHR are never
// touched: client-rendered prices depend on them.
var blockedResourceTypes = map[proto.NetworkResourceType]struct{}{
	proto.NetworkResourceTypeFont:  {},
	proto.NetworkResourceTypeMedia: {},
}

// setupHijack installs a request interceptor blocking the resource
// types above. Returns the running router so the caller can defer
// router.Stop().
func setupHijack(page *rod.Page) *rod.HijackRouter {
	router := page.HijackRequests()

	// Pattern "*" + empty resourceType intercepts everything; the
	// handler decides per request.
	_ = router.Add("*", "", func(ctx *rod.Hijack) {
		if _, shouldBlock := blockedResourceTypes[ctx.Request.Type()]; shouldBlock {
			ctx.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		ctx.ContinueRequest(&proto.FetchContinueRequest{})
	})

	// router.Run() blocks; it exits when router.Stop() is called.
	go router.Run()

	return router
}
