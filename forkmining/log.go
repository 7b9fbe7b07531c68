// Copyright (c) 2014-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package forkmining

import (
	"github.com/btcsuite/btclog"

	"github.com/forkchain/forkd/logger"
)

// log is a logger that is initialized with no output filters.  This
// means the package will not perform any logging by default until the
// caller requests it.
var log btclog.Logger

func init() {
	log, _ = logger.Get(logger.SubsystemTags.FORK)
}
