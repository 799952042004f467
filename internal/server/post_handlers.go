package server

import (
	"echofeed/internal/events"
	"echofeed/internal/models"
	"echofeed/internal/service"

	"github.com/gofiber/fiber/v2"
)

// publishFeedEvent pushes the event to live feed subscribers when the hub
// is running.
func (s *Server) publishFeedEvent(event events.Event) {
	if s.feedHub == nil {
		return
	}
	s.feedHub.Broadcast(event)
}

// CreatePost handles POST /api/posts
func (s *Server) CreatePost(c *fiber.Ctx) error {
	var req struct {
		Title   string `json:"title" form:"title"`
		Content string `json:"content" form:"content"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	in := service.CreatePostInput{
		AuthorID: currentUserID(c),
		Title:    req.Title,
		Content:  req.Content,
	}
	if fh := formFile(c, "image"); fh != nil {
		content, contentType, err := readImageFile(c, fh)
		if err != nil {
			return nil
		}
		in.Image = &service.ImageUpload{Content: content, ContentType: contentType}
	}

	post, err := s.postService.CreatePost(c.Context(), in)
	if err != nil {
		return respondServiceError(c, err)
	}

	s.publishFeedEvent(events.Event{
		Type:    events.EventPostCreated,
		PostID:  post.ID,
		ActorID: post.AuthorID,
		Post:    post,
	})

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Post created",
		"post":    post,
	})
}

// GetPosts handles GET /api/posts
func (s *Server) GetPosts(c *fiber.Ctx) error {
	posts, err := s.postService.ListPosts(c.Context(), s.optionalUserID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{
		"count": len(posts),
		"posts": posts,
	})
}

// GetMyPosts handles GET /api/posts/my/posts
func (s *Server) GetMyPosts(c *fiber.Ctx) error {
	posts, err := s.postService.GetUserPosts(c.Context(), currentUserID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{
		"count": len(posts),
		"posts": posts,
	})
}

// GetPost handles GET /api/posts/:id
func (s *Server) GetPost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	post, err := s.postService.GetPost(c.Context(), id, s.optionalUserID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(post)
}

// UpdatePost handles PUT /api/posts/:id
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Title       string `json:"title" form:"title"`
		Content     string `json:"content" form:"content"`
		RemoveImage *bool  `json:"removeImage"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	in := service.UpdatePostInput{
		UserID:      currentUserID(c),
		PostID:      id,
		Title:       req.Title,
		Content:     req.Content,
		RemoveImage: removeFlagSet(req.RemoveImage, c.FormValue("removeImage")),
	}
	if fh := formFile(c, "image"); fh != nil {
		content, contentType, err := readImageFile(c, fh)
		if err != nil {
			return nil
		}
		in.Image = &service.ImageUpload{Content: content, ContentType: contentType}
	}

	post, err := s.postService.UpdatePost(c.Context(), in)
	if err != nil {
		return respondServiceError(c, err)
	}

	s.publishFeedEvent(events.Event{
		Type:    events.EventPostUpdated,
		PostID:  post.ID,
		ActorID: post.AuthorID,
		Post:    post,
	})

	return c.JSON(fiber.Map{
		"message": "Post updated",
		"post":    post,
	})
}

// DeletePost handles DELETE /api/posts/:id
func (s *Server) DeletePost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.postService.DeletePost(c.Context(), currentUserID(c), id); err != nil {
		return respondServiceError(c, err)
	}

	s.publishFeedEvent(events.Event{
		Type:    events.EventPostDeleted,
		PostID:  id,
		ActorID: currentUserID(c),
	})

	return c.JSON(fiber.Map{
		"message": "Post deleted",
	})
}

// LikePost handles POST /api/posts/:id/like
func (s *Server) LikePost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	result, err := s.postService.ToggleLike(c.Context(), currentUserID(c), id)
	if err != nil {
		return respondServiceError(c, err)
	}

	message := "Post liked"
	eventType := events.EventPostLiked
	if !result.Liked {
		message = "Post unliked"
		eventType = events.EventPostUnliked
	}

	s.publishFeedEvent(events.Event{
		Type:       eventType,
		PostID:     id,
		ActorID:    currentUserID(c),
		LikesCount: result.LikesCount,
	})

	return c.JSON(fiber.Map{
		"message":    message,
		"liked":      result.Liked,
		"likesCount": result.LikesCount,
		"post":       result.Post,
	})
}

// CreateComment handles POST /api/posts/:id/comments
func (s *Server) CreateComment(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Text string `json:"text" form:"text"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	post, comment, err := s.postService.AddComment(c.Context(), currentUserID(c), id, req.Text)
	if err != nil {
		return respondServiceError(c, err)
	}

	s.publishFeedEvent(events.Event{
		Type:    events.EventCommentAdded,
		PostID:  id,
		ActorID: currentUserID(c),
		Comment: comment,
	})

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Comment added",
		"post":    post,
		"comment": comment,
	})
}
