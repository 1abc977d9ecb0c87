package handler

import (
	"petcycle/internal/usecase"
)

var (
	chatHandler        *ChatHandler
	userHandler        *UserHandler
	productHandler     *ProductHandler
	likeHandler        *LikeHandler
	transactionHandler *TransactionHandler
)

func Setup(
	chatUseCase *usecase.ChatUseCase,
	userUseCase *usecase.UserUseCase,
	productUseCase *usecase.ProductUseCase,
	likeUseCase *usecase.LikeUseCase,
	transactionUseCase *usecase.TransactionUseCase,
	historyLimit int,
) {
	chatHandler = NewChatHandler(chatUseCase, historyLimit)
	userHandler = NewUserHandler(userUseCase)
	productHandler = NewProductHandler(productUseCase)
	likeHandler = NewLikeHandler(likeUseCase)
	transactionHandler = NewTransactionHandler(transactionUseCase)
}

func GetChatHandler() *ChatHandler {
	return chatHandler
}

func GetUserHandler() *UserHandler {
	return userHandler
}

func GetProductHandler() *ProductHandler {
	return productHandler
}

func GetLikeHandler() *LikeHandler {
	return likeHandler
}

func GetTransactionHandler() *TransactionHandler {
	return transactionHandler
}
