package sequence

import "go.uber.org/zap"

// Close abandons the sequence: it cancels the in-flight request, clears the
// remote content, puts the origin back where it was, removes the frame and
// mounts again. It must run on the page loop.
func (c *Controller) Close() {
	abandoned := c.engaged()
	c.teardown()
	if err := c.Mount(); err != nil {
		c.logger.Warn("remount after close failed", zap.Error(err))
	}
	if abandoned {
		c.emit(EventClose, nil)
	}
}

func (c *Controller) teardown() {
	c.generation++
	c.cancelInflight()
	c.releaseActions()

	if c.frame != nil {
		c.frame.remote.Empty()
		c.restoreOrigin()
		for _, n := range c.frame.nodes {
			if n.Parent != nil {
				n.Parent.RemoveChild(n)
			}
		}
		c.frame = nil
	}
	c.setActive(false)
	c.setState(StateNone)
	c.setStep(0)
}
